package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APP_ENV", "PORT", "DB_DRIVER", "POSTGRES_URL", "SQLITE_PATH", "LOG_LEVEL", "LOG_FORMAT",
	"CORS_ORIGINS", "PRICE_UPDATE_INTERVAL", "QUOTE_BATCH_SIZE", "QUOTE_BATCHES_PER_SECOND",
	"SIMULATOR_LATENCY_MS", "SIMULATOR_FALLBACK", "SEED_DEMO",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Quotes.BatchSize)
	assert.Equal(t, 0, cfg.Quotes.UpdateIntervalSeconds)
	require.NotNil(t, cfg.Quotes.Fallback)
	assert.True(t, *cfg.Quotes.Fallback)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_env: production
port: "9090"
cors_origins: ["http://localhost:3000"]
database:
  driver: memory
  seed_demo: true
quotes:
  update_interval_seconds: 60
  batch_size: 3
  fallback: false
log:
  level: debug
  format: json
`), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("QUOTE_BATCH_SIZE", "10")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.True(t, cfg.Database.SeedDemo)
	assert.Equal(t, 60, cfg.Quotes.UpdateIntervalSeconds)
	assert.Equal(t, 10, cfg.Quotes.BatchSize)
	assert.False(t, *cfg.Quotes.Fallback)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_PostgresURLPicksDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without url": {"DB_DRIVER": "postgres"},
		"unknown driver":       {"DB_DRIVER": "mongo"},
		"bad port":             {"PORT": "http"},
		"bad int":              {"QUOTE_BATCH_SIZE": "five"},
		"bad bool":             {"SIMULATOR_FALLBACK": "maybe"},
		"bad level":            {"LOG_LEVEL": "loud"},
		"negative interval":    {"PRICE_UPDATE_INTERVAL": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l := NewLogger(LogConfig{Level: "warn", Format: "json"})
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l = NewLogger(LogConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
