package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xavierca1/lead-followup/internal/infra/queue"
	"github.com/xavierca1/lead-followup/internal/infra/worker"
	"github.com/xavierca1/lead-followup/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the delivery-check consumer and the scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Telemetry.Enabled {
			tp, err := telemetry.NewTracerProvider(cfg.App.Name, cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(sctx); err != nil {
					logger.Warn("failed to shut down tracer provider", slog.String("error", err.Error()))
				}
			}()
		}

		app, err := NewApp(cfg, logger, true)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer app.Close()

		if app.rabbitMQ != nil {
			w := queue.NewWorker(app.rabbitMQ.Ch, app.day1, logger)
			go func() {
				if err := w.Start(ctx, queue.DeliveryCheckQueue); err != nil {
					logger.Error("delivery check consumer stopped", slog.String("error", err.Error()))
				}
			}()
		}

		if cfg.Scheduler.Enabled {
			go worker.NewFollowUpWorker(app.followUp, cfg.Scheduler.Interval, logger).Start(ctx)
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.App.Port),
			Handler:           app.routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server starting", slog.Int("port", cfg.App.Port))
			serverErrors <- server.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
			if err := server.Close(); err != nil {
				fmt.Fprintln(os.Stderr, "forced shutdown failed:", err)
			}
		}
		logger.Info("server gracefully stopped")
		return nil
	},
}
