package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/iditgo/internal/config"
	"github.com/xelth-com/iditgo/internal/database"
	"github.com/xelth-com/iditgo/internal/handlers"
	"github.com/xelth-com/iditgo/internal/logger"
	"github.com/xelth-com/iditgo/internal/metrics"
	"github.com/xelth-com/iditgo/internal/middleware"
	"github.com/xelth-com/iditgo/internal/scheduler"
	"github.com/xelth-com/iditgo/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl := logger.Must(logger.New(cfg.IsDevelopment(), cfg.LogLevel))
	defer zl.Sync()

	// 2. Initialize database (sqlite, embedded or external PostgreSQL)
	db, err := database.Connect(cfg.Database, logger.Named(zl, "database"))
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	// Note: db.Close() is called in the shutdown sequence below

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.Ping(pingCtx)
	cancelPing()
	if err != nil {
		db.Close()
		zl.Fatal("database not reachable", zap.Error(err))
	}

	// 3. Auto-Migrate Schema
	zl.Info("synchronizing database schema")
	if err := database.Migrate(db.DB); err != nil {
		db.Close()
		zl.Fatal("migration failed", zap.Error(err))
	}

	// 4. Live updates and metrics
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := websocket.NewHub(logger.Named(zl, "ws"))
	go hub.Run(ctx)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// 5. HTTP router
	router := handlers.NewRouter(db.DB, cfg, handlers.Options{
		Logger:  zl,
		Metrics: m,
		Hub:     hub,
	})

	// 6. Scheduled snapshots
	sched := scheduler.NewScheduler(cfg.SnapshotCron, router.Ledger(), logger.Named(zl, "scheduler"))
	if err := sched.Start(); err != nil {
		zl.Error("invalid SNAPSHOT_CRON, scheduled snapshots disabled", zap.String("spec", cfg.SnapshotCron), zap.Error(err))
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CaseInsensitiveMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		zl.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	sig := <-shutdown
	zl.Info("shutting down gracefully", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server shutdown error", zap.Error(err))
	}
	sched.Stop()
	stop()

	// Close database (this also stops embedded PostgreSQL)
	zl.Info("closing database connection")
	if err := db.Close(); err != nil {
		zl.Error("database close error", zap.Error(err))
	}
	zl.Info("shutdown complete")
}
