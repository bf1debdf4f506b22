package config

import (
	"cmp"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	PostgresURL string `yaml:"postgres_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	SeedDemo    bool   `yaml:"seed_demo"`
}

type QuotesConfig struct {
	// UpdateIntervalSeconds drives the server-side updater; 0 turns it off.
	UpdateIntervalSeconds int     `yaml:"update_interval_seconds"`
	BatchSize             int     `yaml:"batch_size"`
	BatchesPerSecond      int     `yaml:"batches_per_second"`
	Fallback              *bool   `yaml:"fallback"`
	Volatility            float64 `yaml:"volatility"`
	LatencyMillis         int     `yaml:"latency_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	AppEnv      string         `yaml:"app_env"`
	Port        string         `yaml:"port"`
	CORSOrigins []string       `yaml:"cors_origins"`
	Database    DatabaseConfig `yaml:"database"`
	Quotes      QuotesConfig   `yaml:"quotes"`
	Log         LogConfig      `yaml:"log"`
}

// Load builds the configuration from an optional YAML file, then lets
// environment variables override it, then fills defaults.
func Load(filename string) (Config, error) {
	var cfg Config
	if filename != "" {
		input, err := os.ReadFile(filename)
		if err != nil {
			return cfg, fmt.Errorf("%w: can't read file", err)
		}
		if err := yaml.Unmarshal(input, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: can't unmarshal config", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.Setup()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: invalid config", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	setBool := func(key string) (*bool, error) {
		v := os.Getenv(key)
		if v == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return &b, nil
	}

	setString(&c.AppEnv, "APP_ENV")
	setString(&c.Port, "PORT")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.PostgresURL, "POSTGRES_URL")
	setString(&c.Database.SQLitePath, "SQLITE_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	for key, dst := range map[string]*int{
		"PRICE_UPDATE_INTERVAL":    &c.Quotes.UpdateIntervalSeconds,
		"QUOTE_BATCH_SIZE":         &c.Quotes.BatchSize,
		"QUOTE_BATCHES_PER_SECOND": &c.Quotes.BatchesPerSecond,
		"SIMULATOR_LATENCY_MS":     &c.Quotes.LatencyMillis,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}

	fallback, err := setBool("SIMULATOR_FALLBACK")
	if err != nil {
		return err
	}
	if fallback != nil {
		c.Quotes.Fallback = fallback
	}
	seed, err := setBool("SEED_DEMO")
	if err != nil {
		return err
	}
	if seed != nil {
		c.Database.SeedDemo = *seed
	}
	return nil
}

// Setup fills every unset field with its default.
func (c *Config) Setup() {
	const (
		defaultAppEnv           = "development"
		defaultPort             = "8080"
		defaultSQLitePath       = "./data/stockfolio.db"
		defaultBatchSize        = 5
		defaultBatchesPerSecond = 2
		defaultLogLevel         = "info"
		defaultLogFormat        = "text"
	)

	c.AppEnv = cmp.Or(c.AppEnv, defaultAppEnv)
	c.Port = cmp.Or(c.Port, defaultPort)
	c.Database.SQLitePath = cmp.Or(c.Database.SQLitePath, defaultSQLitePath)
	if c.Database.Driver == "" {
		if c.Database.PostgresURL != "" {
			c.Database.Driver = DriverPostgres
		} else {
			c.Database.Driver = DriverSQLite
		}
	}
	c.Quotes.BatchSize = cmp.Or(c.Quotes.BatchSize, defaultBatchSize)
	c.Quotes.BatchesPerSecond = cmp.Or(c.Quotes.BatchesPerSecond, defaultBatchesPerSecond)
	if c.Quotes.Fallback == nil {
		fallback := true
		c.Quotes.Fallback = &fallback
	}
	c.Log.Level = cmp.Or(c.Log.Level, defaultLogLevel)
	c.Log.Format = cmp.Or(c.Log.Format, defaultLogFormat)
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port %q is not a number", c.Port)
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for the postgres driver")
		}
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Quotes.UpdateIntervalSeconds < 0 {
		return fmt.Errorf("update interval must not be negative")
	}
	if c.Quotes.BatchSize < 0 || c.Quotes.BatchesPerSecond < 0 {
		return fmt.Errorf("quote batching settings must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg LogConfig) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
