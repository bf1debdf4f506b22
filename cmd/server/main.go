package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockfolio/internal/app"
	"stockfolio/internal/config"
	"stockfolio/internal/handlers"
	"stockfolio/internal/server"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env file if it exists, but don't fail if it's missing (e.g. in production)
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(cfg.Log)
	if envErr != nil {
		logger.Debug("no .env file found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	if cfg.Quotes.UpdateIntervalSeconds > 0 {
		a.Quotes.Start(ctx, time.Duration(cfg.Quotes.UpdateIntervalSeconds)*time.Second)
		logger.Infof("quote updater running every %ds", cfg.Quotes.UpdateIntervalSeconds)
	}

	h := handlers.NewHandler(a.Store, a.Portfolio, a.Quotes, logger)
	router := handlers.NewRouter(h, handlers.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Production:  cfg.IsProduction(),
	}, logger)

	srv := server.NewHTTPServer(ctx, cfg.Port, router, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Errorf("server stopped: %v", err)
		return
	}
	logger.Info("server stopped")
}
