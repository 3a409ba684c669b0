// Package router assembles the HTTP routes and middleware chain.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/subkeeper/subkeeper/internal/handler"
	"github.com/subkeeper/subkeeper/internal/metrics"
	"github.com/subkeeper/subkeeper/internal/middleware"
)

// BasePath prefixes every subscription route.
const BasePath = "/api/subscription"

// Deps are the collaborators the router wires together.
type Deps struct {
	Logger        *slog.Logger
	Subscriptions handler.Subscriptions
	Verifier      middleware.Verifier
	Metrics       metrics.Recorder
	Snapshotter   metrics.Snapshotter
	Gauges        []handler.Gauge

	// Readiness checks. Cache may be nil.
	DB    handler.HealthChecker
	Cache handler.HealthChecker

	// Rate limiting is skipped when Limiter is nil.
	Limiter        middleware.OwnerLimiter
	RateLimitRPM   int
	RateLimitBurst int

	// Admin routes are not registered when AdminToken is empty.
	AdminToken string
	// DebugRoutes registers the unscoped /subs listing (admin only).
	DebugRoutes bool

	IsDevelopment      bool
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
}

// New builds the application handler.
func New(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := d.MaxRequestBodySize
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	h := handler.New()
	healthHandler := handler.NewHealthHandler(d.DB, d.Cache, logger)
	metricsHandler := handler.NewMetricsHandler(d.Snapshotter, d.Gauges...)
	subHandler := handler.NewSubscriptionHandler(d.Subscriptions, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = d.CORSAllowedOrigins
	cors.Logger = logger

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.IsDevelopment}))
	r.Use(middleware.CORS(cors))
	r.Use(middleware.MaxBodySize(maxBody))

	// Operational endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Route(BasePath, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(middleware.AuthConfig{
				Logger:   logger,
				Verifier: d.Verifier,
				Metrics:  d.Metrics,
			}))
			r.Use(middleware.RateLimitOwner(middleware.RateLimitConfig{
				Logger:            logger,
				Limiter:           d.Limiter,
				Metrics:           d.Metrics,
				RequestsPerMinute: d.RateLimitRPM,
				Burst:             d.RateLimitBurst,
			}))

			r.Post("/create", subHandler.Create)
			r.Get("/", subHandler.List)
			r.Patch("/update/{subscription_id}", subHandler.Update)
			r.Delete("/delete/{subscription_id}", subHandler.Delete)
		})

		if d.AdminToken == "" {
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(d.AdminToken, logger))

			r.Get("/subs_user/{user_id}", subHandler.ListByUser)
			if d.DebugRoutes {
				r.Get("/subs", subHandler.ListAll)
			}
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
