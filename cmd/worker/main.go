// Package main provides the entrypoint for the Fangstlog weather backfill worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/config"
	"github.com/fangstlog/fangstlog/internal/database"
	"github.com/fangstlog/fangstlog/internal/dmi"
	"github.com/fangstlog/fangstlog/internal/provider/resilience"
	"github.com/fangstlog/fangstlog/internal/telemetry"
	"github.com/fangstlog/fangstlog/internal/trip"
	"github.com/fangstlog/fangstlog/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "fangstlog-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.Level())
	log.Info().Str("build_time", BuildTime).Msg("starting Fangstlog worker")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceName = serviceName
	telemetryCfg.ServiceVersion = Version
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	registry := resilience.NewRegistry()
	dmiClient := dmi.NewClient(dmi.ClientConfig{
		BaseURL:  cfg.DMI.BaseURL,
		APIKey:   cfg.DMI.APIKey,
		Registry: registry,
		Logger:   log,
	})
	evaluator := dmi.NewEvaluator(dmi.EvaluatorConfig{
		Fetcher: dmiClient,
		Logger:  log,
	})

	job := worker.NewBackfillJob(worker.BackfillJobConfig{
		Config: worker.BackfillConfig{
			BatchSize:   cfg.BackfillBatchSize,
			Concurrency: cfg.BackfillConcurrency,
			Timeout:     cfg.BackfillTimeout,
			MaxAge:      cfg.BackfillMaxAge,
		},
		Trips:     trip.NewPostgresRepository(pool),
		Evaluator: evaluator,
		Logger:    log,
	})

	// Periodic sweep catches trips whose notification was lost.
	scheduler := gocron.NewScheduler(time.UTC)
	_, err = scheduler.Every(cfg.SweepInterval).SingletonMode().Do(func() {
		if _, err := job.Run(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled backfill sweep failed")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule backfill sweep")
	}
	scheduler.StartAsync()
	defer scheduler.Stop()
	log.Info().Dur("interval", cfg.SweepInterval).Msg("backfill sweep scheduled")

	if cfg.ConsumesPubSub() {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.Subscription,
			Dispatcher:       worker.NewDispatcher(job, log),
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
				cancel()
			}
		}()
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - running scheduled sweeps only")
	}

	// Worker also exposes health endpoint for Cloud Run
	mux := http.NewServeMux()
	// An open DMI breaker leaves the worker alive but unable to backfill.
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if !registry.Healthy() {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  status,
			"version": Version,
		})
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		providers := make(map[string]string)
		for _, h := range registry.Providers() {
			providers[h.Name] = h.CircuitState.String()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"backfill":  job.MetricsSnapshot(),
			"providers": providers,
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal or a fatal consumer error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
