// Package main implements the entry point for the Atelier API server,
// which accepts image-generation tasks, runs them through the bounded
// generation queue, and persists the resulting artifacts.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/quenby/atelier-api/internal/config"
	"github.com/quenby/atelier-api/internal/platform/gemini"
	"github.com/quenby/atelier-api/internal/platform/logger"
	"github.com/quenby/atelier-api/internal/platform/postgres"
	"github.com/quenby/atelier-api/internal/queue"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// run wires the application together and blocks until shutdown. It exists
// separately from main so that every exit path returns an error instead
// of calling os.Exit directly.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"image_model", cfg.LLM.ImageModelName,
		"max_concurrent", cfg.Queue.MaxConcurrent)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := runMigrations(db, appLogger); err != nil {
		return err
	}

	generator, err := gemini.NewImageGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create image generator: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db)

	manager, err := queue.NewManager(queue.Config{
		MaxConcurrent:       cfg.Queue.MaxConcurrent,
		MaxQueueSize:        cfg.Queue.QueueSize,
		TaskTimeout:         time.Duration(cfg.Queue.TaskTimeoutSeconds) * time.Second,
		MaxRetries:          cfg.Queue.MaxRetries,
		RetryDelay:          time.Duration(cfg.Queue.RetryDelaySeconds) * time.Second,
		RateLimitRetryDelay: time.Duration(cfg.Queue.RateLimitDelaySeconds) * time.Second,
		HistorySize:         cfg.Queue.HistorySize,
	}, generator, taskStore, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create queue manager: %w", err)
	}

	// Tasks left pending or generating by a previous process re-enter the
	// queue before the server starts accepting new submissions.
	if err := manager.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover unfinished tasks: %w", err)
	}

	router := setupRouter(manager, taskStore, appLogger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err = g.Wait()

	// The HTTP surface is down; drain the queue before releasing the
	// database so in-flight tasks can still persist their transitions.
	manager.Stop()

	if err != nil {
		return err
	}
	slog.Info("server shutdown completed")
	return nil
}
