package ports

import (
	"context"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

// DocumentStore reads and updates document state in the persistence service.
type DocumentStore interface {
	ListByProposer(ctx context.Context, proposerID string) ([]domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	SaveExtraction(ctx context.Context, id string, payload *domain.ExtractedPayload, validated bool, status domain.ProcessingStatus) error
	MarkStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMessage string) error
}

// ProposerStore reads the declared proposer record.
type ProposerStore interface {
	GetByID(ctx context.Context, proposerID string) (*domain.ProposerRecord, error)
}

// ExtractionService is the external component that turns a stored document
// into structured data. Any non-2xx or non-JSON response is a hard failure
// for that document.
type ExtractionService interface {
	ProcessDocument(ctx context.Context, documentID string) (*domain.ExtractedPayload, error)
}

// ReviewEventPublisher broadcasts run lifecycle and per-document status
// changes to interested dashboard sessions, scoped by proposer.
type ReviewEventPublisher interface {
	PublishRunRequested(ctx context.Context, proposerID string) error
	PublishStatusChanged(ctx context.Context, event domain.StatusEvent) error
}

// RunSignalPublisher carries run control signals from the API process to
// whichever worker holds the run.
type RunSignalPublisher interface {
	PublishRunRequested(ctx context.Context, proposerID string) error
	PublishCancelRequested(ctx context.Context, proposerID string) error
}

// StatusEventStream delivers status events published by workers. Subscribe
// returns after registration; delivery stops when ctx is cancelled.
type StatusEventStream interface {
	SubscribeStatusChanged(ctx context.Context, handler func(domain.StatusEvent)) error
}

// UnderwritingStatusService records the underwriter's final verdict.
type UnderwritingStatusService interface {
	UpdateStatus(ctx context.Context, proposerID string, status domain.VerdictStatus, message string) error
}
