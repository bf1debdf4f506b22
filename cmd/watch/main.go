package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stockfolio/internal/app"
	"stockfolio/internal/client"
	"stockfolio/internal/config"
	"stockfolio/internal/models"
	"stockfolio/internal/scheduler"

	"github.com/bytedance/sonic"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	defaultURL := os.Getenv("STOCKFOLIO_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	baseURL := flag.String("url", defaultURL, "stockfolio server address")
	interval := flag.Duration("interval", scheduler.DefaultInterval, "auto-refresh interval")
	local := flag.Bool("local", false, "read the configured store directly instead of a server")
	jsonOut := flag.Bool("json", false, "print every snapshot as JSON instead of the dashboard")
	once := flag.Bool("once", false, "refresh once, print and exit")
	logPath := flag.String("log", "", "append logs to this file while the dashboard is open")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var src scheduler.Source
	if *local {
		cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("startup failed: %v", err)
		}
		defer a.Close()
		src = a.Local()
	} else {
		c := client.New(*baseURL, 10*time.Second, logger)
		defer c.Close()
		src = c
	}

	switch {
	case *once:
		err := runOnce(ctx, src, *jsonOut, os.Stdout, logger)
		if err != nil {
			logger.Errorf("refresh failed: %v", err)
			os.Exit(1)
		}
	case *jsonOut:
		runJSON(ctx, src, *interval, os.Stdout, logger)
	default:
		if err := runDashboard(ctx, src, *interval, *logPath, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func runDashboard(ctx context.Context, src scheduler.Source, interval time.Duration, logPath string, logger *logrus.Logger) error {
	// the alternate screen owns the terminal
	logger.SetOutput(io.Discard)
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	var p *tea.Program
	sched := scheduler.New(src, schedulerConfig(interval, func(msg tea.Msg) { p.Send(msg) }), logger)
	defer sched.Close()

	p = tea.NewProgram(newModel(ctx, sched), tea.WithAltScreen(), tea.WithContext(ctx))
	sched.Start()
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func runOnce(ctx context.Context, src scheduler.Source, jsonOut bool, w io.Writer, logger *logrus.Logger) error {
	sched := scheduler.New(src, scheduler.Config{}, logger)
	defer sched.Close()
	if err := sched.RunCycle(ctx); err != nil {
		return err
	}
	view, _ := sched.Snapshot()
	if jsonOut {
		return (&printer{w: w}).print(view)
	}
	_, err := fmt.Fprint(w, renderDashboard(view, statusOf(sched)))
	return err
}

func runJSON(ctx context.Context, src scheduler.Source, interval time.Duration, w io.Writer, logger *logrus.Logger) {
	out := &printer{w: w}
	sched := scheduler.New(src, scheduler.Config{
		Interval: interval,
		OnUpdate: func(v models.PortfolioView) {
			if err := out.print(v); err != nil {
				logger.Warnf("encode snapshot: %v", err)
			}
		},
		OnError: func(err error) { logger.Warnf("refresh failed: %v", err) },
	}, logger)
	defer sched.Close()

	_ = sched.RunCycle(ctx)
	sched.Start()
	<-ctx.Done()
}

// printer writes one indented JSON document per snapshot.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) print(v models.PortfolioView) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}
