package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telehealth-gate/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/telehealth-gate/internal/http/middleware"
	"github.com/wolfman30/telehealth-gate/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	GateHandler    *handlers.GateHandler
	MetricsHandler http.Handler
	MetricsToken   string

	// ServiceJWTSecret protects the /v1 API. Empty leaves it open, which
	// config only permits outside production.
	ServiceJWTSecret string
	CORS             httpmiddleware.CORSPolicy
	RateLimiter      *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORS))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.GateHandler.HealthCheck)
		if cfg.MetricsHandler != nil {
			public.With(requireScrapeToken(cfg.MetricsToken)).Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/v1", func(api chi.Router) {
		if cfg.ServiceJWTSecret != "" {
			api.Use(httpmiddleware.ServiceJWT(cfg.ServiceJWTSecret))
		}
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}

		api.Get("/medications/{name}/controlled", cfg.GateHandler.ClassifyControlled)
		api.Get("/prescriptions", cfg.GateHandler.ListPrescriptions)
		api.Get("/appointments", cfg.GateHandler.ListAppointments)

		api.Post("/refills/evaluate", cfg.GateHandler.EvaluateRefill)
		api.Post("/refills/evaluate-batch", cfg.GateHandler.EvaluateRefills)
		api.Post("/appointments/check-in/evaluate", cfg.GateHandler.EvaluateCheckIn)
		api.Post("/appointments/cancellation/evaluate", cfg.GateHandler.EvaluateCancellation)
		api.Post("/knowledge/search", cfg.GateHandler.SearchKnowledge)
	})

	return r
}
