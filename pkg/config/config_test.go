package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVICE_NAME", "ENV", "LOG_LEVEL", "REFDATA_DIR", "GENERAL_TICKER_INFO_FILE",
		"TRADING_SESSION_FILE", "TRADING_TIMEZONE", "REFDATA_PORT", "REDIS_ADDR",
		"DATABASE_URL", "PUBLISHER", "EVENT_SUBJECT", "SYNC_INTERVAL", "API_RPS",
		"API_BURST", "REFDATA_SECRET_NAME", "PG_MAX_CONNS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "refdata", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "210", cfg.TradingTimezone)
	assert.Equal(t, 9020, cfg.Port)
	assert.Equal(t, PublisherNone, cfg.Publisher)
	assert.Equal(t, "evt.refdata.snapshot_loaded.v1", cfg.EventSubject)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 200.0, cfg.APIRPS)
	assert.Equal(t, 400, cfg.APIBurst)
	assert.Equal(t, 10, cfg.PGMaxConns)
	assert.Empty(t, cfg.SecretName)
	assert.False(t, cfg.StoreEnabled())
	assert.Equal(t, filepath.Join("data", "GeneralTickerInfo.csv"), cfg.GeneralTickerInfoPath())
	assert.Equal(t, filepath.Join("data", "TradingSession.csv"), cfg.TradingSessionPath())
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "refdata-uat")
	t.Setenv("ENV", "uat")
	t.Setenv("REFDATA_DIR", "/srv/refdata")
	t.Setenv("TRADING_SESSION_FILE", "/etc/refdata/sessions.csv")
	t.Setenv("TRADING_TIMEZONE", "480")
	t.Setenv("REFDATA_PORT", "8080")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PUBLISHER", "rabbitmq")
	t.Setenv("SYNC_INTERVAL", "1m")
	t.Setenv("API_RPS", "12.5")

	cfg := Load()

	assert.Equal(t, "refdata-uat", cfg.ServiceName)
	assert.Equal(t, "uat", cfg.Env)
	assert.Equal(t, "480", cfg.TradingTimezone)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, PublisherRabbitMQ, cfg.Publisher)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 12.5, cfg.APIRPS)
	assert.True(t, cfg.StoreEnabled())
	assert.Equal(t, filepath.Join("/srv/refdata", "GeneralTickerInfo.csv"), cfg.GeneralTickerInfoPath())
	assert.Equal(t, "/etc/refdata/sessions.csv", cfg.TradingSessionPath())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.Publisher = "kafka"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.TradingTimezone = ""
	assert.Error(t, cfg.Validate())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("REFDATA_TEST_STR", "  value  ")
	t.Setenv("REFDATA_TEST_INT", "not-a-number")
	t.Setenv("REFDATA_TEST_BOOL", "true")
	t.Setenv("REFDATA_TEST_DUR", "90s")
	t.Setenv("REFDATA_TEST_EMPTY", "")

	assert.Equal(t, "value", GetEnv("REFDATA_TEST_STR", "def"))
	assert.Equal(t, "def", GetEnv("REFDATA_TEST_EMPTY", "def"))
	assert.Equal(t, 42, GetEnvInt("REFDATA_TEST_INT", 42))
	assert.True(t, GetEnvBool("REFDATA_TEST_BOOL", false))
	assert.False(t, GetEnvBool("REFDATA_TEST_EMPTY", false))
	assert.Equal(t, 90*time.Second, GetEnvDuration("REFDATA_TEST_DUR", time.Second))
	assert.Equal(t, 1.5, GetEnvFloat("REFDATA_TEST_INT", 1.5))
}
