// Package app assembles the store and services from configuration. The
// server, the seeding tool and the local dashboard all start here.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stockfolio/internal/config"
	"stockfolio/internal/database"
	"stockfolio/internal/marketdata"
	"stockfolio/internal/service"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

type App struct {
	Store     database.Store
	Quotes    *service.QuoteService
	Portfolio *service.PortfolioService

	db  *sqlx.DB
	log *logrus.Logger
}

func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	a := &App{log: log}

	store, err := a.openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Store = store

	if cfg.Database.SeedDemo {
		seeded, err := database.SeedDemo(ctx, store)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("seed demo portfolio: %w", err)
		}
		if seeded {
			log.Info("seeded demo portfolio")
		}
	}

	sim := marketdata.NewSimulator(marketdata.SimulatorConfig{
		Volatility: cfg.Quotes.Volatility,
		Fallback:   cfg.Quotes.Fallback != nil && *cfg.Quotes.Fallback,
		Latency:    time.Duration(cfg.Quotes.LatencyMillis) * time.Millisecond,
	}, log)

	var limiter ratelimit.Limiter
	if cfg.Quotes.BatchesPerSecond > 0 {
		limiter = ratelimit.New(cfg.Quotes.BatchesPerSecond)
	}
	a.Quotes = service.NewQuoteService(store, sim, limiter, cfg.Quotes.BatchSize, log)
	a.Portfolio = service.NewPortfolioService(store, log)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.DatabaseConfig) (database.Store, error) {
	var dsn string
	switch cfg.Driver {
	case config.DriverMemory:
		a.log.Warn("using in-memory store; holdings are lost on exit")
		return database.NewMemoryStore(), nil
	case config.DriverPostgres:
		dsn = cfg.PostgresURL
	case config.DriverSQLite:
		dsn = cfg.SQLitePath
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := database.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	a.db = db

	repo := database.New(db, a.log)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	a.log.Infof("connected to %s store", cfg.Driver)
	return repo, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Local adapts the services to the scheduler's source, skipping HTTP.
func (a *App) Local() service.Local {
	return service.Local{Quotes: a.Quotes, Portfolio: a.Portfolio}
}
