package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soundforms/atelier-backend/api/controllers"
	ordercontrollers "github.com/soundforms/atelier-backend/api/controllers/orders"
	"github.com/soundforms/atelier-backend/api/middleware"
	internalorders "github.com/soundforms/atelier-backend/internal/orders"
	"github.com/soundforms/atelier-backend/internal/reconcile"
	"github.com/soundforms/atelier-backend/internal/registry"
	"github.com/soundforms/atelier-backend/internal/worksheet"
	"github.com/soundforms/atelier-backend/pkg/config"
	"github.com/soundforms/atelier-backend/pkg/enums"
	"github.com/soundforms/atelier-backend/pkg/logger"
	"github.com/soundforms/atelier-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	HealthDeps  map[string]controllers.Pinger
	Orders      internalorders.Service
	Reconcile   reconcile.Service
	Registry    registry.Service
	Worksheet   *worksheet.Normalizer
	CORSOrigins []string
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(deps.CORSOrigins...),
	)

	reconcilePolicy := middleware.RateLimitPolicy{
		Scope:  "reconcile",
		Limit:  30,
		Window: time.Minute,
	}
	reconcileLimit := middleware.RateLimit(reconcilePolicy, nil, logg)
	if deps.Redis != nil {
		reconcileLimit = middleware.RateLimit(reconcilePolicy, deps.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthDeps))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1", func(r chi.Router) {
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderNumber}", ordercontrollers.Detail(deps.Orders, logg))
				r.With(requireWriter(logg)).Post("/", ordercontrollers.Create(deps.Orders, logg))
				r.With(requireWriter(logg)).Patch("/{orderNumber}", ordercontrollers.Update(deps.Orders, logg))
				r.With(requireWriter(logg)).Patch("/{orderNumber}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
				r.With(requireAdmin(logg)).Delete("/{orderNumber}", ordercontrollers.Delete(deps.Orders, logg))
				r.With(requireWriter(logg), reconcileLimit).Post("/{orderNumber}/reconcile", controllers.ReconcileOrder(deps.Reconcile, logg))
			})

			r.Route("/items", func(r chi.Router) {
				r.Get("/", ordercontrollers.ListItems(deps.Orders, logg))
				r.Get("/{itemId}", ordercontrollers.ItemDetail(deps.Orders, logg))
				r.With(requireWriter(logg)).Patch("/{itemId}/status", ordercontrollers.UpdateItemStatus(deps.Orders, logg))
				r.With(requireWriter(logg)).Patch("/{itemId}/settings", ordercontrollers.UpdateItemSettings(deps.Orders, logg))
				r.With(requireWriter(logg)).Post("/{itemId}/archive", ordercontrollers.ArchiveItem(deps.Orders, logg))
			})

			r.Route("/serials", func(r chi.Router) {
				r.Get("/", controllers.ListSerials(deps.Registry, logg))
				r.Get("/{serial}", controllers.ResolveSerial(deps.Registry, logg))
				r.With(requireWriter(logg)).Post("/freeze", controllers.FreezeSerial(deps.Registry, logg))
				r.Get("/bindings/{lineItemId}", controllers.LineItemBinding(deps.Registry, logg))
			})

			r.Get("/worksheet", controllers.Worksheet(deps.Orders, deps.Worksheet, logg))

			r.Route("/sync", func(r chi.Router) {
				r.With(requireAdmin(logg), reconcileLimit).Post("/reconcile", controllers.ReconcileBatch(deps.Reconcile, logg))
			})
		})
	})

	return r
}

func requireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequireRole(logg, enums.StaffRoleAdmin.String())
}

func requireWriter(logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequireRole(logg, enums.StaffRoleAdmin.String(), enums.StaffRoleBuilder.String())
}
