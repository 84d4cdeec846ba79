package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "cv-data", cfg.Store.Key)
	assert.Equal(t, "cv-settings", cfg.Store.SettingsKey)
	assert.Equal(t, "rod", cfg.Browser.Driver)
	assert.Equal(t, 0.7, cfg.Browser.PreviewScale)
	assert.Equal(t, 100*time.Millisecond, cfg.Browser.SettleDelay)
	assert.Equal(t, 2.0, cfg.Export.Supersample)
	assert.Equal(t, 98, cfg.Export.JPEGQuality)
	assert.False(t, cfg.MinIO.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("BROWSER_DRIVER", "chromedp")
	t.Setenv("EXPORT_SETTLE_DELAY", "250ms")
	t.Setenv("CHROME_PATH", "/usr/bin/chromium")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr())
	assert.Equal(t, "chromedp", cfg.Browser.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Browser.SettleDelay)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.Bin)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":   {"STORE_DRIVER": "dynamo"},
		"unknown browser": {"BROWSER_DRIVER": "webkit"},
		"minio no keys":   {"MINIO_ENDPOINT": "localhost:9000"},
		"bad quality":     {"EXPORT_JPEG_QUALITY": "0"},
		"bad scale":       {"PREVIEW_SCALE": "1.5"},
		"bad log level":   {"LOG_LEVEL": "loud"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "cv", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cv sslmode=disable", d.DSN())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "loud"}.SlogLevel())
}

func TestOrigins(t *testing.T) {
	assert.Nil(t, ServerConfig{}.Origins())
	assert.Equal(t, []string{"http://a", "http://b"}, ServerConfig{AllowedOrigins: " http://a, ,http://b "}.Origins())
}
