package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SQLiteDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/tickets.db")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/tickets.db", cfg.SQLitePath)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 250, cfg.InitialCapacity)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 7, cfg.RateLimit.Capacity)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.AMQPURL)
	assert.True(t, cfg.MapsEnabled)
	assert.False(t, cfg.SeedCatalog)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("SESSION_BACKEND", "disk")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, "missing required env var: DB_USER\n"+
		"missing required env var: DB_HOST\n"+
		"missing required env var: DB_NAME\n"+
		`invalid SESSION_BACKEND "disk"`, err.Error())

	t.Setenv("DB_DRIVER", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "DB_DRIVER")
}

func TestLoad_ProdLogsJSON(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOG_FORMAT", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	assert.False(t, envBool("X_BOOL", true))
	assert.Equal(t, 3, envInt("X_INT", 3))
	assert.Equal(t, 90*time.Second, envDur("X_DUR", time.Second))
	assert.Equal(t, "d", envStr("X_MISSING", "d"))
}

func TestRedisConfigAndClient(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("REDIS_DB", "0")

	cfg := LoadRedisConfig()
	assert.Equal(t, mr.Addr(), cfg.Addr)

	rdb := NewRedisClient(cfg)
	require.NotNil(t, rdb)
	defer rdb.Close()

	assert.Nil(t, NewRedisClient(RedisConfig{Addr: "127.0.0.1:1"}))
}
