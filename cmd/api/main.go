// Package main provides the entrypoint for the Fangstlog API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api"
	"github.com/fangstlog/fangstlog/internal/api/handler"
	"github.com/fangstlog/fangstlog/internal/api/middleware"
	"github.com/fangstlog/fangstlog/internal/auth"
	"github.com/fangstlog/fangstlog/internal/config"
	"github.com/fangstlog/fangstlog/internal/database"
	"github.com/fangstlog/fangstlog/internal/provider/resilience"
	"github.com/fangstlog/fangstlog/internal/spot"
	"github.com/fangstlog/fangstlog/internal/telemetry"
	"github.com/fangstlog/fangstlog/internal/trip"
	"github.com/fangstlog/fangstlog/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "fangstlog-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.Level())

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting Fangstlog API")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceName = serviceName
	telemetryCfg.ServiceVersion = Version
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Float64("sample_ratio", telemetryCfg.SampleRatio).
			Dur("metric_interval", telemetryCfg.MetricInterval).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	upstreamMetrics, err := middleware.NewUpstreamMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize upstream metrics")
		os.Exit(1)
	}

	// Trip and spot storage
	var (
		tripRepo trip.Repository
		spotRepo spot.Repository
		pinger   handler.Pinger
	)
	switch cfg.TripStore {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory trip store - data is lost on restart")
		tripRepo = trip.NewInMemoryRepository()
		spotRepo = spot.NewInMemoryRepository()
	default:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		tripRepo = trip.NewPostgresRepository(pool)
		spotRepo = spot.NewPostgresRepository(pool)
		pinger = pool
	}

	// Backfill notifications
	var notifier trip.BackfillNotifier
	if cfg.PublishesBackfill() {
		publisher, err := worker.NewPublisher(ctx, worker.PublisherConfig{
			ProjectID: cfg.PubSubProjectID,
			TopicName: cfg.BackfillTopic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create backfill publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close backfill publisher")
			}
		}()
		notifier = publisher
		log.Info().Str("topic", cfg.BackfillTopic).Msg("backfill publisher initialized")
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - trips without weather wait for the worker sweep")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey:     cfg.JWTSigningKey,
		Issuer:         cfg.JWTIssuer,
		Audience:       cfg.JWTAudience,
		AccessTokenTTL: cfg.JWTTTL,
	})
	if cfg.JWTSigningKey == config.DevSigningKey {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: jwtService,
		DevTokens:  cfg.DevTokens,
	})
	if cfg.DevTokens {
		log.Warn().Msg("dev tokens enabled - POST /v1/auth/dev-token issues tokens without sign-in")
	}

	spotService := spot.NewService(spotRepo)
	tripService := trip.NewService(trip.ServiceConfig{
		Repo:     tripRepo,
		Spots:    spotRepo,
		Notifier: notifier,
		Logger:   log,
	})

	registry := resilience.NewRegistry()

	var dmiProxy *handler.DMIProxyHandler
	if cfg.DMI.APIKey != "" {
		dmiProxy = handler.NewDMIProxyHandler(handler.DMIProxyConfig{
			BaseURL:  cfg.DMI.BaseURL,
			APIKey:   cfg.DMI.APIKey,
			Registry: registry,
			Metrics:  upstreamMetrics,
			Logger:   log,
		})
		log.Info().Msg("DMI proxy enabled")
	} else {
		log.Warn().Msg("DMI_API_KEY not set - /v1/dmi is not served")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		Metrics:     metrics,
		AuthService: authService,
		TripService: tripService,
		SpotService: spotService,
		Database:    pinger,
		Registry:    registry,
		DMIProxy:    dmiProxy,
		RequireTLS:  cfg.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
