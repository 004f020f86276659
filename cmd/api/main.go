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

	"docinsight-backend/internal/bootstrap"
	"docinsight-backend/internal/shared/config"
	"docinsight-backend/internal/shared/server"
	"docinsight-backend/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	telemetry.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	if cfg.RecoverOnStart {
		report, err := app.Processor.Recover(ctx, cfg.ProcessingStaleAfter)
		if err != nil {
			telemetry.Error("recovery.failed", map[string]any{"error": err.Error()})
		} else {
			telemetry.Info("recovery.done", map[string]any{
				"found":    report.Found,
				"requeued": report.Requeued,
				"failed":   report.Failed,
				"skipped":  report.Skipped,
			})
		}
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		telemetry.Info("server.start", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
		return
	case <-ctx.Done():
	}

	telemetry.Info("server.shutdown", map[string]any{"timeout_ms": shutdownTimeout.Milliseconds()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Warn("server.shutdown_failed", map[string]any{"error": err.Error()})
	}

	// Unfinished documents stay in processing and are picked up by recovery
	// on the next start.
	closed := make(chan struct{})
	go func() {
		if err := app.Close(); err != nil {
			telemetry.Warn("server.close_failed", map[string]any{"error": err.Error()})
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-shutdownCtx.Done():
		telemetry.Warn("server.shutdown_timeout", map[string]any{"in_flight": "abandoned"})
	}
}
