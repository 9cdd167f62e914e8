package app

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_screening/config"
	"github.com/Alijeyrad/simorq_screening/internal/events"
	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/audit"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
	"github.com/Alijeyrad/simorq_screening/internal/service/token"
	"github.com/Alijeyrad/simorq_screening/pkg/observability"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideCatalogService,
		ProvideTokenService,
		ProvideScreeningService,
	),
)

func ProvideCatalogService(store repo.Store) catalog.Service {
	return catalog.New(store)
}

func ProvideTokenService(store repo.Store, cfg *config.Config) token.Service {
	return token.New(store, token.Options{ByteLength: cfg.Screening.TokenBytes()})
}

type ScreeningParams struct {
	fx.In

	Cfg     *config.Config
	Store   repo.Store
	Catalog catalog.Service
	Tokens  token.Service
	Audit   audit.Recorder
	Events  events.Publisher
	Metrics *observability.ScreeningMetrics
	Logger  *slog.Logger
}

func ProvideScreeningService(p ScreeningParams) screening.Service {
	return screening.New(screening.Deps{
		Store:   p.Store,
		Catalog: p.Catalog,
		Tokens:  p.Tokens,
		Audit:   p.Audit,
		Events:  p.Events,
		Metrics: p.Metrics,
		Logger:  p.Logger,
	}, screening.Options{
		TokenTTL:      p.Cfg.Screening.TokenTTL(),
		PublicBaseURL: p.Cfg.Server.PublicBaseURL,
	})
}
