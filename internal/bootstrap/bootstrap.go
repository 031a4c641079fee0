package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aravindkv/underwriter-review/internal/config"
	"github.com/aravindkv/underwriter-review/internal/core/ports"
	"github.com/aravindkv/underwriter-review/internal/core/taxonomy"
	"github.com/aravindkv/underwriter-review/internal/core/usecase"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/extraction"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/queue/nats"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/report"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/repository/postgres"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/resilience"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/underwriting"
)

type Options struct {
	Logger     *slog.Logger
	RunMetrics usecase.RunMetrics
}

type App struct {
	Config config.Config

	Queue      *nats.Queue
	Processor  ports.ReviewRunner
	RemoteRuns *usecase.RemoteRunCoordinator
	Review     ports.ReviewReader
	Verdicts   *usecase.VerdictService
	Exporter   ports.ReportExporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	proposers := postgres.NewProposerRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	extractor := extraction.New(
		cfg.ExtractionURL,
		time.Duration(cfg.ExtractionTimeoutSeconds)*time.Second,
		executor,
	)
	statusSink := underwriting.New(
		cfg.UnderwritingURL,
		time.Duration(cfg.UnderwritingTimeoutSeconds)*time.Second,
		executor,
	)

	analyzer := usecase.NewAnalyzer(taxonomy.MustLoad(), usecase.ComparatorConfig{
		MatchThresholdPercent: cfg.MatchThresholdPercent,
		SalaryTolerance:       cfg.SalaryTolerance,
	})

	processorOpts := []usecase.ProcessorOption{usecase.WithLogger(logger)}
	if opts.RunMetrics != nil {
		processorOpts = append(processorOpts, usecase.WithRunMetrics(opts.RunMetrics))
	}
	processor := usecase.NewReviewProcessor(
		docs,
		proposers,
		extractor,
		queue,
		analyzer,
		time.Duration(cfg.InterDocumentDelayMS)*time.Millisecond,
		processorOpts...,
	)

	return &App{
		Config: cfg,

		Queue:      queue,
		Processor:  processor,
		RemoteRuns: usecase.NewRemoteRunCoordinator(queue, logger),
		Review:     usecase.NewReviewService(docs, proposers, analyzer),
		Verdicts:   usecase.NewVerdictService(statusSink),
		Exporter:   report.NewExcelExporter(),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
