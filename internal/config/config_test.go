package config_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/config"
)

func TestLoadAPI_Defaults(t *testing.T) {
	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, config.StorePostgres, cfg.TripStore)
	assert.Equal(t, config.DevSigningKey, cfg.JWTSigningKey)
	assert.Equal(t, "fangstlog-api", cfg.JWTAudience)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.DevTokens)
	assert.False(t, cfg.PublishesBackfill())

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
	assert.True(t, cfg.Telemetry.Insecure)
	assert.Equal(t, 15*time.Second, cfg.Telemetry.MetricInterval)
}

func TestLoadAPI_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TRIP_STORE", "memory")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DMI_API_KEY", "dmi-key")
	t.Setenv("DEV_TOKENS", "true")
	t.Setenv("PUBSUB_PROJECT_ID", "fangstlog-prod")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("REQUIRE_TLS", "true")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, config.StoreMemory, cfg.TripStore)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "dmi-key", cfg.DMI.APIKey)
	assert.True(t, cfg.DevTokens)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.PublishesBackfill())
	assert.True(t, cfg.RequireTLS)
}

func TestLoadAPI_Production(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := config.LoadAPI()
	assert.ErrorIs(t, err, config.ErrInvalid, "signing key is required")

	t.Setenv("JWT_SIGNING_KEY", "prod-key")
	t.Setenv("DEV_TOKENS", "true")
	_, err = config.LoadAPI()
	assert.ErrorIs(t, err, config.ErrInvalid, "dev tokens are refused")

	t.Setenv("DEV_TOKENS", "false")
	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	assert.Equal(t, "prod-key", cfg.JWTSigningKey)
	assert.True(t, cfg.IsProduction())
}

func TestLoadAPI_Invalid(t *testing.T) {
	t.Setenv("TRIP_STORE", "firestore")
	_, err := config.LoadAPI()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoadAPI_ParseError(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	_, err := config.LoadAPI()
	assert.ErrorContains(t, err, "parsing environment")
}

func TestLoadWorker(t *testing.T) {
	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 100, cfg.BackfillBatchSize)
	assert.Equal(t, 3, cfg.BackfillConcurrency)
	assert.Equal(t, 45*time.Second, cfg.BackfillTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.BackfillMaxAge)
	assert.False(t, cfg.ConsumesPubSub())

	t.Setenv("PUBSUB_PROJECT_ID", "fangstlog-prod")
	cfg, err = config.LoadWorker()
	require.NoError(t, err)
	assert.True(t, cfg.ConsumesPubSub())
	assert.Equal(t, "weather-backfill-worker", cfg.Subscription)
}

func TestLoadWorker_Invalid(t *testing.T) {
	t.Setenv("BACKFILL_SWEEP_INTERVAL", "10s")
	_, err := config.LoadWorker()
	assert.ErrorIs(t, err, config.ErrInvalid)

	t.Setenv("BACKFILL_SWEEP_INTERVAL", "5m")
	t.Setenv("BACKFILL_CONCURRENCY", "0")
	_, err = config.LoadWorker()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoadLogbook(t *testing.T) {
	_, err := config.LoadLogbook()
	assert.ErrorIs(t, err, config.ErrInvalid, "api url is required")

	t.Setenv("LOGBOOK_API_URL", "https://api.fangstlog.dk/")
	cfg, err := config.LoadLogbook()
	require.NoError(t, err)

	assert.Equal(t, "https://api.fangstlog.dk", cfg.APIURL)
	assert.Equal(t, "https://api.fangstlog.dk/v1/dmi", cfg.DMIURL)
	assert.Equal(t, "https://api.fangstlog.dk/v1/ops/health", cfg.ProbeURL)
	assert.Equal(t, config.StoreSQLite, cfg.QueueStore)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 15*time.Second, cfg.ConnectivityInterval)
	assert.Equal(t, 5, cfg.MaxRetryAttempts)
	assert.Equal(t, 3*time.Second, cfg.WeatherBackoff)
}

func TestLoadLogbook_Stores(t *testing.T) {
	t.Setenv("LOGBOOK_API_URL", "http://localhost:8080")

	t.Setenv("LOGBOOK_QUEUE_STORE", "file")
	t.Setenv("LOGBOOK_QUEUE_PATH", "/var/lib/fangstlog/queue.json")
	cfg, err := config.LoadLogbook()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fangstlog/queue.json", cfg.QueuePath)

	t.Setenv("LOGBOOK_QUEUE_STORE", "memory")
	_, err = config.LoadLogbook()
	assert.NoError(t, err)

	t.Setenv("LOGBOOK_QUEUE_STORE", "redis")
	_, err = config.LoadLogbook()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestCommon_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, config.Common{LogLevel: "DEBUG"}.Level())
	assert.Equal(t, zerolog.WarnLevel, config.Common{LogLevel: "warn"}.Level())
	assert.Equal(t, zerolog.InfoLevel, config.Common{LogLevel: "chatty"}.Level())
	assert.Equal(t, zerolog.InfoLevel, config.Common{}.Level())
}
