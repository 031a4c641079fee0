package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aravindkv/underwriter-review/internal/bootstrap"
	"github.com/aravindkv/underwriter-review/internal/config"
	"github.com/aravindkv/underwriter-review/internal/observability/logging"
	"github.com/aravindkv/underwriter-review/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:     logger,
		RunMetrics: workerMetrics.RunRecorder("worker"),
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := app.Queue.SubscribeCancelRequested(ctx, func(proposerID string) {
		if app.Processor.Cancel(proposerID) {
			logger.Info("review run cancelled", "proposer_id", proposerID)
		}
	}); err != nil {
		log.Fatalf("worker subscribe cancel error: %v", err)
	}

	runTimeout := time.Duration(cfg.RunTimeoutSeconds) * time.Second
	logger.Info("worker subscribed", "timeout_seconds", cfg.RunTimeoutSeconds)
	err = app.Queue.SubscribeRunRequested(ctx, func(handlerCtx context.Context, proposerID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, runTimeout)
		defer cancel()

		start := time.Now()
		runErr := app.Processor.Run(runCtx, proposerID)
		workerMetrics.RecordRun("worker", runOutcome(runCtx, runErr), time.Since(start))
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func runOutcome(ctx context.Context, err error) string {
	switch {
	case err == nil && ctx.Err() != nil:
		return "cancelled"
	case err == nil:
		return "success"
	default:
		return "error"
	}
}
