package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_screening/config"
	"github.com/Alijeyrad/simorq_screening/internal/api/http/handler"
	"github.com/Alijeyrad/simorq_screening/internal/api/http/middleware"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
	"github.com/Alijeyrad/simorq_screening/pkg/authorize"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg          *config.Config
	Redis        *redis.Client `optional:"true"`
	Auth         authorize.IAuthorization
	ScreeningSvc screening.Service
	CatalogSvc   catalog.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	actorRequired := middleware.ActorRequired()
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	publicH := handler.NewPublicHandler(r.p.ScreeningSvc)
	orderH := handler.NewOrderHandler(r.p.ScreeningSvc)
	assessmentH := handler.NewAssessmentHandler(r.p.ScreeningSvc)
	adminH := handler.NewAdminHandler(r.p.ScreeningSvc, r.p.CatalogSvc)

	// Patient-facing, token-authenticated.
	assess := app.Group("/assess/:token", middleware.NewTokenLimiter(r.p.Redis, r.p.Cfg.Server.RateLimit))
	assess.Get("/", publicH.Validate)
	assess.Get("/questions", publicH.Questions)
	assess.Post("/", publicH.Submit)

	api := app.Group("/api/v1", actorRequired)

	orders := api.Group("/orders")
	orders.Post("/", requirePerm(authorize.ResourceOrder, authorize.ActionCreate), orderH.Create)
	orders.Get("/:id", requirePerm(authorize.ResourceOrder, authorize.ActionRead), orderH.Get)
	orders.Post("/:id/token", requirePerm(authorize.ResourceToken, authorize.ActionCreate), orderH.IssueToken)
	orders.Post("/:id/reissue", requirePerm(authorize.ResourceToken, authorize.ActionCreate), orderH.Reissue)
	orders.Post("/:id/cancel", requirePerm(authorize.ResourceOrder, authorize.ActionUpdate), orderH.Cancel)
	orders.Post("/:id/expire", requirePerm(authorize.ResourceOrder, authorize.ActionUpdate), orderH.Expire)
	orders.Post("/:id/review", requirePerm(authorize.ResourceAssessment, authorize.ActionReview), orderH.Review)

	assessments := api.Group("/assessments")
	assessments.Get("/:id", requirePerm(authorize.ResourceAssessment, authorize.ActionRead), assessmentH.Get)
	assessments.Post("/:id/review", requirePerm(authorize.ResourceAssessment, authorize.ActionReview), assessmentH.Review)

	admin := api.Group("/admin")
	admin.Post("/sweep", requirePerm(authorize.ResourceSweep, authorize.ActionExecute), adminH.Sweep)
	admin.Post("/catalog/seed", requirePerm(authorize.ResourceCatalog, authorize.ActionExecute), adminH.SeedCatalog)
	admin.Post("/catalog/questions/:id/retire", requirePerm(authorize.ResourceCatalog, authorize.ActionUpdate), adminH.RetireQuestion)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New())
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
