package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/dmaia/remora/internal/adapters/duckdb"
	"github.com/dmaia/remora/internal/adapters/notify"
	"github.com/dmaia/remora/internal/config"
	"github.com/dmaia/remora/internal/core/domain"
	"github.com/dmaia/remora/internal/core/ports"
	"github.com/dmaia/remora/internal/core/services"
	"github.com/dmaia/remora/internal/tools"
	"github.com/dmaia/remora/pkg/api"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting remorad")

	if err := run(logger); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Journal is optional: without a path, terminal jobs are not persisted.
	var journal ports.Journal
	if cfg.JournalPath != "" {
		j, err := duckdb.NewJournal(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open job journal: %w", err)
		}
		defer j.Close()
		journal = j
	}

	var notifier ports.Notifier
	if cfg.DesktopNotifications {
		notifier = notify.NewDesktop(logger)
	} else {
		notifier = notify.NewLog(logger)
	}

	bus := services.NewEventBus(logger)
	store := services.NewJobStore(logger)
	dispatcher := services.NewNotificationDispatcher(logger, notifier)

	messages := services.NewMessages()
	messages.RegisterSuccess("fibonacci", "Fibonacci calculation completed. The result is {result}")
	messages.RegisterSuccess("timer", "Timer completed after {duration_seconds} seconds")

	registry := domain.NewToolRegistry()
	for _, tool := range []*domain.Tool{
		tools.NewFibonacciTool(),
		tools.NewFibonacciSequenceTool(),
		tools.NewTimerTool(store),
	} {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool: %w", err)
		}
	}

	engine := services.NewEngine(logger, store, registry, bus, dispatcher, messages, journal, services.EngineConfig{
		PollInterval:      cfg.PollInterval,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
	})

	var sweeper *services.Sweeper
	if cfg.SweepSchedule != "" {
		sweeper, err = services.NewSweeper(logger, engine, cfg.SweepSchedule, cfg.SweepMaxAge)
		if err != nil {
			return fmt.Errorf("failed to init sweeper: %w", err)
		}
	}

	apiServer, err := api.NewServer(logger, engine, store, registry, messages, bus, journal, cfg.SweepMaxAge)
	if err != nil {
		return fmt.Errorf("failed to init api server: %w", err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: c.Handler(apiServer.Handler()),
	}

	g, gCtx := errgroup.WithContext(ctx)

	if sweeper != nil {
		sweeper.Start()
		g.Go(func() error {
			<-gCtx.Done()
			sweeper.Stop()
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("starting api server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
