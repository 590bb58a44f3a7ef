package api

import (
	"log/slog"
	"time"

	"github.com/Fantasim/crowdfund/internal/api/handlers"
	"github.com/Fantasim/crowdfund/internal/api/middleware"
	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Dependencies holds everything the HTTP layer needs.
type Dependencies struct {
	DB        *db.DB
	Refresher handlers.CampaignRefresher
	Hub       *events.Hub
	Prices    handlers.PriceSource // nil disables USD estimates
	Config    *config.Config
	Clock     handlers.Clock // defaults to time.Now
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps Dependencies) chi.Router {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	r := chi.NewRouter()

	// Middleware stack (order matters)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.CORS(deps.Config.CORSOrigins))

	slog.Info("router initialized",
		"middleware", []string{"realIP", "recoverer", "requestLogging", "cors"},
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(deps.Config, Version, deps.DB, deps.Hub))
		r.Get("/health/providers", handlers.GetProviderHealth(deps.DB))

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", handlers.ListCampaigns(deps.DB, deps.Config, deps.Clock))
			r.Get("/{id}", handlers.GetCampaign(deps.DB, deps.Prices, deps.Config, deps.Clock))
			r.Get("/{id}/contributors", handlers.GetContributors(deps.DB, deps.Clock))
			r.Post("/{id}/refresh", handlers.RefreshCampaign(deps.Refresher, deps.DB, deps.Config, deps.Clock))
		})

		r.Get("/errors", handlers.ListSystemErrors(deps.DB))
		r.Post("/errors/{id}/resolve", handlers.ResolveSystemError(deps.DB))

		r.Get("/events", handlers.SSEEvents(deps.Hub, deps.DB))
	})

	return r
}
