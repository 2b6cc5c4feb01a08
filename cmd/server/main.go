package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/cardiacai/riskengine/internal/assess"
	"github.com/cardiacai/riskengine/internal/config"
	"github.com/cardiacai/riskengine/internal/db"
	"github.com/cardiacai/riskengine/internal/handlers"
	"github.com/cardiacai/riskengine/internal/history"
	"github.com/cardiacai/riskengine/internal/monitor"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
	"github.com/cardiacai/riskengine/internal/server"
	"github.com/cardiacai/riskengine/internal/session"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Datastore
	gdb, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to open datastore", "error", err)
	}

	// History
	store, err := history.NewStore(gdb, cfg.History.Cap, log)
	if err != nil {
		log.Fatal("Failed to init history store", "error", err)
	}

	// Prediction client
	client, err := assess.NewClient(assess.Options{
		BaseURL:     cfg.Upstream.BaseURL,
		PredictPath: cfg.Upstream.PredictPath,
		Timeout:     cfg.Upstream.Timeout.Duration,
		MaxRetries:  cfg.Upstream.MaxRetries,
	})
	if err != nil {
		log.Fatal("Failed to init prediction client", "error", err)
	}
	assessor := assess.NewAssessor(client, log)

	// Admin session
	if cfg.Admin.Email == "" || cfg.Admin.PasswordHash == "" {
		log.Warn("Admin credentials not configured; admin login is disabled")
	}
	sessions, err := session.NewManager(
		gdb,
		session.NewCredentials(cfg.Admin.Email, cfg.Admin.PasswordHash),
		cfg.Admin.JWTSecret,
		cfg.Admin.SessionTTL.Duration,
		log,
	)
	if err != nil {
		log.Fatal("Failed to init session manager", "error", err)
	}

	// Monitor
	loop := monitor.New(monitor.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		HealthPath:     cfg.Upstream.HealthPath,
		LogsPath:       cfg.Upstream.LogsPath,
		Interval:       cfg.Monitor.Interval.Duration,
		AlertThreshold: cfg.Monitor.AlertThreshold,
		WindowSize:     cfg.Monitor.WindowSize,
		Log:            log,
	}, sessions)
	if sessions.Current() != nil {
		// A session survived the restart; resume the dashboard loop with it.
		if err := loop.Start(); err != nil {
			log.Warn("Failed to resume monitor loop", "error", err)
		}
	}

	// Router
	router := server.NewRouter(server.RouterConfig{
		AssessHandler:  handlers.NewAssessHandler(assessor, store, log),
		HistoryHandler: handlers.NewHistoryHandler(store, log),
		AdminHandler:   handlers.NewAdminHandler(sessions, loop, log),
		AllowOrigins:   cfg.HTTP.AllowOrigins,
		ReleaseMode:    cfg.Env == "production",
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           http.MaxBytesHandler(router, cfg.HTTP.MaxRequestBytes),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Risk engine listening", "addr", cfg.HTTP.Addr, "upstream", cfg.Upstream.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		loop.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server exited with error", "error", err)
	}
	log.Info("Server stopped")
}
