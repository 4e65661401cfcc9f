// Package config loads the configuration of the fangstlog binaries from the
// environment. A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/database"
	"github.com/fangstlog/fangstlog/internal/telemetry"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreFile     = "file"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Common holds settings shared by every binary.
type Common struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// IsProduction reports whether the binary runs in production.
func (c Common) IsProduction() bool {
	return c.Environment == "production"
}

// Level parses LogLevel, falling back to info.
func (c Common) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// DMI holds the upstream DMI settings.
type DMI struct {
	APIKey  string `env:"DMI_API_KEY"`
	BaseURL string `env:"DMI_BASE_URL"`
}

// API configures cmd/api.
type API struct {
	Common
	Port      string `env:"APP_PORT" envDefault:"8080"`
	TripStore string `env:"TRIP_STORE" envDefault:"postgres"`

	// RequireTLS refuses requests the load balancer forwarded over HTTP.
	RequireTLS bool `env:"REQUIRE_TLS" envDefault:"false"`

	Database  database.Config
	Telemetry telemetry.Config
	DMI       DMI

	JWTSigningKey string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"https://api.fangstlog.dk"`
	JWTAudience   string        `env:"JWT_AUDIENCE" envDefault:"fangstlog-api"`
	JWTTTL        time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"1h"`
	DevTokens     bool          `env:"DEV_TOKENS" envDefault:"false"`

	// Backfill requests are published when both are set.
	PubSubProjectID string `env:"PUBSUB_PROJECT_ID"`
	BackfillTopic   string `env:"PUBSUB_BACKFILL_TOPIC" envDefault:"weather-backfill"`
}

// DevSigningKey is used outside production when JWT_SIGNING_KEY is unset.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// LoadAPI reads the API configuration.
func LoadAPI() (*API, error) {
	cfg := &API{}
	if err := parse(cfg); err != nil {
		return nil, err
	}

	switch cfg.TripStore {
	case StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("%w: TRIP_STORE must be %q or %q, got %q", ErrInvalid, StorePostgres, StoreMemory, cfg.TripStore)
	}

	if cfg.JWTSigningKey == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("%w: JWT_SIGNING_KEY is required in production", ErrInvalid)
		}
		cfg.JWTSigningKey = DevSigningKey
	}
	if cfg.DevTokens && cfg.IsProduction() {
		return nil, fmt.Errorf("%w: DEV_TOKENS cannot be enabled in production", ErrInvalid)
	}

	return cfg, nil
}

// PublishesBackfill reports whether trips without weather are announced
// over Pub/Sub.
func (c *API) PublishesBackfill() bool {
	return c.PubSubProjectID != "" && c.BackfillTopic != ""
}

// Worker configures cmd/worker.
type Worker struct {
	Common
	Port string `env:"APP_PORT" envDefault:"8080"`

	Database  database.Config
	Telemetry telemetry.Config
	DMI       DMI

	// The Pub/Sub consumer starts when both are set. The sweep schedule runs regardless.
	PubSubProjectID string `env:"PUBSUB_PROJECT_ID"`
	Subscription    string `env:"PUBSUB_BACKFILL_SUBSCRIPTION" envDefault:"weather-backfill-worker"`

	SweepInterval       time.Duration `env:"BACKFILL_SWEEP_INTERVAL" envDefault:"1h"`
	BackfillBatchSize   int           `env:"BACKFILL_BATCH_SIZE" envDefault:"100"`
	BackfillConcurrency int           `env:"BACKFILL_CONCURRENCY" envDefault:"3"`
	BackfillTimeout     time.Duration `env:"BACKFILL_TIMEOUT" envDefault:"45s"`
	BackfillMaxAge      time.Duration `env:"BACKFILL_MAX_AGE" envDefault:"720h"`
}

// LoadWorker reads the worker configuration.
func LoadWorker() (*Worker, error) {
	cfg := &Worker{}
	if err := parse(cfg); err != nil {
		return nil, err
	}

	if cfg.SweepInterval < time.Minute {
		return nil, fmt.Errorf("%w: BACKFILL_SWEEP_INTERVAL must be at least 1m, got %s", ErrInvalid, cfg.SweepInterval)
	}
	if cfg.BackfillBatchSize <= 0 || cfg.BackfillConcurrency <= 0 {
		return nil, fmt.Errorf("%w: BACKFILL_BATCH_SIZE and BACKFILL_CONCURRENCY must be positive", ErrInvalid)
	}
	return cfg, nil
}

// ConsumesPubSub reports whether the Pub/Sub consumer should start.
func (c *Worker) ConsumesPubSub() bool {
	return c.PubSubProjectID != "" && c.Subscription != ""
}

// Logbook configures the cmd/logbook sync agent.
type Logbook struct {
	Common

	APIURL      string `env:"LOGBOOK_API_URL"`
	AccessToken string `env:"LOGBOOK_ACCESS_TOKEN"`

	// DMIURL defaults to the API's DMI proxy so the device never holds a DMI key.
	DMIURL   string `env:"LOGBOOK_DMI_URL"`
	ProbeURL string `env:"LOGBOOK_PROBE_URL"`

	QueueStore string `env:"LOGBOOK_QUEUE_STORE" envDefault:"sqlite"`
	QueuePath  string `env:"LOGBOOK_QUEUE_PATH" envDefault:"fangstlog-queue.db"`

	SyncInterval         time.Duration `env:"LOGBOOK_SYNC_INTERVAL" envDefault:"15m"`
	ConnectivityInterval time.Duration `env:"LOGBOOK_CONNECTIVITY_INTERVAL" envDefault:"15s"`
	MaxRetryAttempts     int           `env:"LOGBOOK_MAX_RETRY_ATTEMPTS" envDefault:"5"`
	WeatherBackoff       time.Duration `env:"LOGBOOK_WEATHER_BACKOFF" envDefault:"3s"`
}

// LoadLogbook reads the sync agent configuration.
func LoadLogbook() (*Logbook, error) {
	cfg := &Logbook{}
	if err := parse(cfg); err != nil {
		return nil, err
	}

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%w: LOGBOOK_API_URL is required", ErrInvalid)
	}
	if cfg.DMIURL == "" {
		cfg.DMIURL = cfg.APIURL + "/v1/dmi"
	}
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = cfg.APIURL + "/v1/ops/health"
	}

	switch cfg.QueueStore {
	case StoreSQLite, StoreFile:
		if cfg.QueuePath == "" {
			return nil, fmt.Errorf("%w: LOGBOOK_QUEUE_PATH is required for the %s store", ErrInvalid, cfg.QueueStore)
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("%w: unknown LOGBOOK_QUEUE_STORE %q", ErrInvalid, cfg.QueueStore)
	}

	return cfg, nil
}

func parse(v any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	if err := env.Parse(v); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}
