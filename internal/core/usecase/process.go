package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/core/ports"
)

// RunMetrics is the observability hook for a processing run. Implementations
// must be safe for sequential reuse across runs.
type RunMetrics interface {
	StartDocument()
	FinishDocument(duration time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) StartDocument()                      {}
func (noopMetrics) FinishDocument(time.Duration, error) {}

// ReviewProcessor drives one proposer's documents through the extraction
// service, strictly one at a time with a fixed delay between calls. Progress
// reporting relies on this serialization staying monotonic.
type ReviewProcessor struct {
	docs      ports.DocumentStore
	proposers ports.ProposerStore
	extractor ports.ExtractionService
	events    ports.ReviewEventPublisher
	analyzer  *Analyzer
	delay     time.Duration
	metrics   RunMetrics
	logger    *slog.Logger

	mu   sync.Mutex
	runs map[string]*runState
}

type runState struct {
	cancel   context.CancelFunc
	progress domain.RunProgress
}

type ProcessorOption func(*ReviewProcessor)

func WithRunMetrics(m RunMetrics) ProcessorOption {
	return func(p *ReviewProcessor) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *ReviewProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewReviewProcessor(
	docs ports.DocumentStore,
	proposers ports.ProposerStore,
	extractor ports.ExtractionService,
	events ports.ReviewEventPublisher,
	analyzer *Analyzer,
	interDocumentDelay time.Duration,
	opts ...ProcessorOption,
) *ReviewProcessor {
	p := &ReviewProcessor{
		docs:      docs,
		proposers: proposers,
		extractor: extractor,
		events:    events,
		analyzer:  analyzer,
		delay:     interDocumentDelay,
		metrics:   noopMetrics{},
		logger:    slog.Default(),
		runs:      make(map[string]*runState),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one review run for a proposer. Re-triggering while a run is
// active returns ErrRunActive without starting anything. Only a failure to
// load the proposer record or the document list fails the run as a whole;
// per-document failures set that document to error and the loop continues.
func (p *ReviewProcessor) Run(ctx context.Context, proposerID string) error {
	runCtx, err := p.beginRun(ctx, proposerID)
	if err != nil {
		return err
	}
	defer p.endRun(proposerID)
	// Runs last before endRun so the final progress snapshot is still there.
	defer p.publishRunFinished(context.WithoutCancel(ctx), proposerID)

	proposer, err := p.proposers.GetByID(runCtx, proposerID)
	if err != nil {
		return fmt.Errorf("fetch proposer record: %w", err)
	}
	documents, err := p.docs.ListByProposer(runCtx, proposerID)
	if err != nil {
		return fmt.Errorf("fetch document list: %w", err)
	}

	stored, pending := partitionDocuments(documents)
	total := len(documents)
	p.setProgress(proposerID, len(stored), total,
		fmt.Sprintf("Found %d already processed, %d need processing", len(stored), len(pending)))

	// Stored payloads are folded in immediately, without waiting for their
	// turn in the sequential loop.
	for i := range stored {
		p.publishStatus(runCtx, proposerID, &stored[i], domain.DeriveStatus(&stored[i]))
	}

	// The limiter enforces the fixed inter-document delay; the first wait
	// passes immediately.
	limiter := rate.NewLimiter(rate.Every(p.delay), 1)

	processed := len(stored)
	for i := range pending {
		doc := &pending[i]

		if err := runCtx.Err(); err != nil {
			p.logger.Info("review_run_cancelled",
				"proposer_id", proposerID, "processed", processed, "total", total)
			return nil
		}
		if err := limiter.Wait(runCtx); err != nil {
			return nil
		}

		phase := fmt.Sprintf("Processing document %d of %d: %s", processed+1, total, documentLabel(doc))
		p.setProgress(proposerID, processed, total, phase)
		p.publishStatus(runCtx, proposerID, doc, domain.StatusProcessing)
		if err := p.docs.MarkStatus(runCtx, doc.ID, domain.StatusProcessing, ""); err != nil {
			p.logger.Warn("mark_processing_failed", "document_id", doc.ID, "error", err)
		}

		cancelled := p.processOne(runCtx, proposer, doc)
		if cancelled {
			// Cancellation is not a failure: the document keeps whatever
			// status it had before the run.
			return nil
		}
		processed++
		p.setProgress(proposerID, processed, total, phase)
	}

	p.setProgress(proposerID, processed, total,
		fmt.Sprintf("Completed: %d of %d documents", processed, total))
	return nil
}

// processOne runs one extraction round trip. The returned flag reports
// cooperative cancellation, which is checked before the call, carried by the
// request context during it, and rechecked after it.
func (p *ReviewProcessor) processOne(ctx context.Context, proposer *domain.ProposerRecord, doc *domain.Document) (cancelled bool) {
	start := time.Now()
	p.metrics.StartDocument()

	payload, err := p.extractor.ProcessDocument(ctx, doc.ID)
	if isCancellation(ctx, err) {
		p.metrics.FinishDocument(time.Since(start), nil)
		return true
	}
	if err != nil {
		p.metrics.FinishDocument(time.Since(start), err)
		p.logger.Error("document_extraction_failed", "document_id", doc.ID, "error", err)
		if markErr := p.docs.MarkStatus(ctx, doc.ID, domain.StatusError, err.Error()); markErr != nil {
			p.logger.Warn("mark_error_failed", "document_id", doc.ID, "error", markErr)
		}
		doc.Error = err.Error()
		p.publishStatus(ctx, doc.ProposerID, doc, domain.StatusError)
		return false
	}

	result := p.analyzer.Analyze(doc, payload, proposer)
	validated := Validated(result)

	doc.Extracted = payload
	doc.Validated = validated
	doc.Error = ""
	if !result.Success {
		doc.Error = result.Error
	}
	status := domain.DeriveStatus(doc)

	if err := p.docs.SaveExtraction(ctx, doc.ID, payload, validated, status); err != nil {
		if isCancellation(ctx, err) {
			p.metrics.FinishDocument(time.Since(start), nil)
			return true
		}
		p.metrics.FinishDocument(time.Since(start), err)
		p.logger.Error("persist_extraction_failed", "document_id", doc.ID, "error", err)
		if markErr := p.docs.MarkStatus(ctx, doc.ID, domain.StatusError, err.Error()); markErr != nil {
			p.logger.Warn("mark_error_failed", "document_id", doc.ID, "error", markErr)
		}
		return false
	}

	p.metrics.FinishDocument(time.Since(start), nil)
	p.publishStatus(ctx, doc.ProposerID, doc, status)
	return false
}

// Cancel aborts the active run for a proposer, if any. It reports whether a
// run was actually cancelled.
func (p *ReviewProcessor) Cancel(proposerID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.runs[proposerID]
	if !ok {
		return false
	}
	state.cancel()
	return true
}

// Progress returns a snapshot of the active run, or an inactive zero progress
// when no run exists.
func (p *ReviewProcessor) Progress(proposerID string) domain.RunProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.runs[proposerID]
	if !ok {
		return domain.RunProgress{}
	}
	return state.progress
}

func (p *ReviewProcessor) beginRun(ctx context.Context, proposerID string) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, active := p.runs[proposerID]; active {
		return nil, domain.WrapError(domain.ErrRunActive, "begin run", fmt.Errorf("proposer %s", proposerID))
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.runs[proposerID] = &runState{
		cancel:   cancel,
		progress: domain.RunProgress{Active: true},
	}
	return runCtx, nil
}

func (p *ReviewProcessor) endRun(proposerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state, ok := p.runs[proposerID]; ok {
		state.cancel()
		delete(p.runs, proposerID)
	}
}

func (p *ReviewProcessor) setProgress(proposerID string, processed, total int, phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state, ok := p.runs[proposerID]; ok {
		state.progress = domain.RunProgress{
			Processed: processed,
			Total:     total,
			Phase:     phase,
			Active:    true,
		}
	}
}

func (p *ReviewProcessor) publishStatus(ctx context.Context, proposerID string, doc *domain.Document, status domain.ProcessingStatus) {
	progress := p.Progress(proposerID)
	event := domain.StatusEvent{
		ProposerID: proposerID,
		DocumentID: doc.ID,
		Status:     status,
		Phase:      progress.Phase,
		Processed:  progress.Processed,
		Total:      progress.Total,
		Active:     true,
	}
	if err := p.events.PublishStatusChanged(ctx, event); err != nil {
		p.logger.Warn("publish_status_failed", "document_id", doc.ID, "error", err)
	}
}

func (p *ReviewProcessor) publishRunFinished(ctx context.Context, proposerID string) {
	progress := p.Progress(proposerID)
	event := domain.StatusEvent{
		ProposerID: proposerID,
		Phase:      progress.Phase,
		Processed:  progress.Processed,
		Total:      progress.Total,
		Active:     false,
	}
	if err := p.events.PublishStatusChanged(ctx, event); err != nil {
		p.logger.Warn("publish_run_finished_failed", "proposer_id", proposerID, "error", err)
	}
}

// partitionDocuments splits a document list into documents whose stored
// payload can be reused and documents that still need an extraction call.
// Order within each partition follows the supplied list.
func partitionDocuments(documents []domain.Document) (stored, pending []domain.Document) {
	for _, doc := range documents {
		if !doc.Extracted.Empty() {
			stored = append(stored, doc)
			continue
		}
		pending = append(pending, doc)
	}
	return stored, pending
}

func documentLabel(doc *domain.Document) string {
	if doc.Name != "" {
		return doc.Name
	}
	return string(doc.DocumentType)
}

// isCancellation distinguishes a cooperative abort from a failure so that
// aborted documents are never shown as failed.
func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
