package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_screening/config"
	"github.com/Alijeyrad/simorq_screening/internal/events"
	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/audit"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
	"github.com/Alijeyrad/simorq_screening/pkg/authorize"
	"github.com/Alijeyrad/simorq_screening/pkg/database"
	"github.com/Alijeyrad/simorq_screening/pkg/email"
	"github.com/Alijeyrad/simorq_screening/pkg/observability"
	redispkg "github.com/Alijeyrad/simorq_screening/pkg/redis"
	s3pkg "github.com/Alijeyrad/simorq_screening/pkg/s3"
	"github.com/Alijeyrad/simorq_screening/pkg/sms"
)

// InfraModule provides all infrastructure dependencies. Optional backends
// (redis, nats, s3, postgres in memory mode) are provided as nil when
// disabled; consumers check for nil.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideLogger),
	fx.Provide(ProvidePool),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideSMSClient),
	fx.Provide(ProvideS3Client),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvidePublisher),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideScreeningMetrics),
	fx.Provide(ProvideAuditRecorder),
)

func ProvideLogger() *slog.Logger {
	return slog.Default()
}

func ProvidePool(lc fx.Lifecycle, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Screening.Store == config.StoreMemory {
		return nil, nil
	}
	dbCfg := database.FromCentralConfig(cfg.Database)
	pool, err := database.NewPool(context.Background(), dbCfg)
	if err != nil {
		return nil, err
	}
	if dbCfg.AutoMigrate {
		n, err := database.NewMigrator(pool).Up(context.Background())
		if err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("database migrations applied", "count", n)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing main database pool")
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

// ProvideStore returns the Postgres store, or an in-memory store when
// screening.store is memory.
func ProvideStore(pool *pgxpool.Pool, cfg *config.Config) (repo.Store, error) {
	if pool == nil {
		slog.Warn("using in-memory store; data is lost on restart")
		return NewMemoryStore(context.Background(), cfg.Screening.Directory)
	}
	return repo.NewPostgresStore(pool), nil
}

// NewMemoryStore builds a memory store holding the standard catalog and the
// configured patient and doctor directory.
func NewMemoryStore(ctx context.Context, dir config.DirectoryConfig) (*repo.MemoryStore, error) {
	store := repo.NewMemoryStore()
	if _, err := catalog.New(store).Seed(ctx); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	for i, e := range dir.Patients {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return nil, fmt.Errorf("screening.directory.patients[%d]: invalid id %q: %w", i, e.ID, err)
		}
		store.AddPatient(repo.Patient{ID: id, FullName: e.FullName, Email: e.Email, Phone: e.Phone})
	}
	for i, e := range dir.Doctors {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return nil, fmt.Errorf("screening.directory.doctors[%d]: invalid id %q: %w", i, e.ID, err)
		}
		store.AddDoctor(repo.Doctor{ID: id, FullName: e.FullName, Email: e.Email})
	}
	slog.Info("memory store ready", "patients", len(dir.Patients), "doctors", len(dir.Doctors))
	return store, nil
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rdb, err := redispkg.NewRedisFromCentral(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideAuthorization(cfg *config.Config, log *slog.Logger) (authorize.IAuthorization, error) {
	return authorize.New(authorize.FromCentralConfig(cfg.Authorization), log)
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideSMSClient(cfg *config.Config) (*sms.Client, error) {
	return sms.NewFromConfig(cfg.SMS)
}

func ProvideS3Client(cfg *config.Config) (*s3pkg.Client, error) {
	if !cfg.S3.Enabled {
		return nil, nil
	}
	return s3pkg.New(context.Background(), cfg.S3)
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	if !cfg.Nats.Enabled {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.Nats.URL, nats.Name(cfg.Observability.ServiceName))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvidePublisher(nc *nats.Conn, cfg *config.Config) events.Publisher {
	if nc == nil {
		return events.Nop()
	}
	return events.NewNatsPublisher(nc, cfg.Nats.SubjectPrefix)
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

// ProvideScreeningMetrics registers the domain counters on the telemetry
// meter provider. Without telemetry the counters go to the global no-op
// provider.
func ProvideScreeningMetrics(p *observability.Provider) (*observability.ScreeningMetrics, error) {
	if p == nil {
		return observability.NewScreeningMetrics(nil)
	}
	return observability.NewScreeningMetrics(p.MeterProvider)
}

func ProvideAuditRecorder(pool *pgxpool.Pool, log *slog.Logger) audit.Recorder {
	if pool == nil {
		return audit.NewLogRecorder(log)
	}
	return audit.NewPostgresRecorder(pool)
}
