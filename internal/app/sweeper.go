package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_screening/config"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
	redispkg "github.com/Alijeyrad/simorq_screening/pkg/redis"
	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
)

const sweepLockKey = "screening:sweep:lock"

// SweeperModule runs the periodic expiry sweep when screening.sweep_enabled is set.
var SweeperModule = fx.Module("sweeper",
	fx.Provide(ProvideSweeper),
	fx.Invoke(RegisterSweeper),
)

// Sweeper moves sent orders whose token lapsed to expired. With redis
// configured, at most one replica sweeps per interval.
type Sweeper struct {
	svc      screening.Service
	rdb      redis.Cmdable
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(svc screening.Service, rdb *redis.Client, interval time.Duration, log *slog.Logger) *Sweeper {
	s := &Sweeper{svc: svc, interval: interval, log: log.With("component", "sweeper")}
	if rdb != nil {
		s.rdb = rdb
	}
	return s
}

func ProvideSweeper(svc screening.Service, rdb *redis.Client, cfg *config.Config, log *slog.Logger) *Sweeper {
	return NewSweeper(svc, rdb, cfg.Screening.SweepInterval(), log)
}

func RegisterSweeper(lc fx.Lifecycle, s *Sweeper, cfg *config.Config) {
	if !cfg.Screening.SweepEnabled {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("expiry sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep and returns how many orders expired. It
// returns 0 without sweeping when another replica holds the lease. The lease
// is kept for the interval on success and dropped on failure so a peer can
// retry.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ctx = reqctx.WithActor(ctx, reqctx.System)

	var lock *redispkg.Lock
	if s.rdb != nil {
		var err error
		lock, err = redispkg.Acquire(ctx, s.rdb, sweepLockKey, s.leaseTTL())
		if errors.Is(err, redispkg.ErrLockHeld) {
			s.log.Debug("sweep lease held by another replica")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
	}

	n, err := s.svc.SweepExpired(ctx)
	if err != nil {
		if lock != nil {
			if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
				s.log.Warn("release sweep lease", "error", rerr)
			}
		}
	}
	return n, err
}

// leaseTTL is slightly shorter than the interval so the holder can renew on
// its next tick.
func (s *Sweeper) leaseTTL() time.Duration {
	return s.interval - s.interval/10
}
