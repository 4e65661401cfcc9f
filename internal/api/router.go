// Package api provides the HTTP API for Fangstlog.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api/handler"
	"github.com/fangstlog/fangstlog/internal/api/middleware"
	"github.com/fangstlog/fangstlog/internal/auth"
	"github.com/fangstlog/fangstlog/internal/provider/resilience"
	"github.com/fangstlog/fangstlog/internal/spot"
	"github.com/fangstlog/fangstlog/internal/trip"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics
	AuthService *auth.Service
	TripService *trip.Service
	SpotService *spot.Service

	// Database is pinged by the readiness check. Optional.
	Database handler.Pinger

	// Registry supplies provider health for /v1/ops/status. Optional.
	Registry *resilience.Registry

	// DMIProxy serves /v1/dmi. The proxy routes are not mounted when nil.
	DMIProxy *handler.DMIProxyHandler

	// RequireTLS refuses requests forwarded over plain HTTP.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// RequestID comes first so every later middleware can log and trace it.
	// Logging, tracing and metrics share one response recorder, and Recovery
	// sits inside them so a panic is still logged as a 500.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Database:  cfg.Database,
		Registry:  cfg.Registry,
		Logger:    cfg.Logger,
	})
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	tripHandler := handler.NewTripHandler(cfg.TripService, cfg.Logger)
	spotHandler := handler.NewSpotHandler(cfg.SpotService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.AuthRateLimit))
			r.Post("/dev-token", authHandler.DevToken)
		})

		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit))
			r.Use(middleware.RequireJSON)

			r.Route("/trips", func(r chi.Router) {
				r.Get("/", tripHandler.ListTrips)
				r.Post("/", tripHandler.CreateTrip)
				r.Get("/{tripId}", tripHandler.GetTrip)
			})

			r.Route("/spots", func(r chi.Router) {
				r.Get("/", spotHandler.ListSpots)
				r.Post("/", spotHandler.CreateSpot)
				r.Delete("/{spotId}", spotHandler.DeleteSpot)
			})
		})

		// Public read-only proxy; devices never hold the DMI key.
		if cfg.DMIProxy != nil {
			r.Route("/dmi", func(r chi.Router) {
				r.Use(middleware.PublicCORS)
				r.Use(middleware.RateLimitByIP(middleware.ProxyRateLimit))
				r.Get("/{api}/collections/{collection}/items", cfg.DMIProxy.Proxy)
				r.Options("/{api}/collections/{collection}/items", cfg.DMIProxy.Proxy)
			})
		}
	})

	return r
}
