package ports

import (
	"context"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

// ReviewRunner is the inbound contract for the sequential processing run.
// Run returns ErrRunActive without starting anything when a run is already
// active for the proposer.
type ReviewRunner interface {
	Run(ctx context.Context, proposerID string) error
	Cancel(proposerID string) bool
	Progress(proposerID string) domain.RunProgress
}

// ReviewReader assembles the proposer-level combined view from stored
// payloads without re-calling the extraction service.
type ReviewReader interface {
	Review(ctx context.Context, proposerID string) (*domain.ReviewSummary, error)
}

// ReportExporter renders a proposer's combined review as a spreadsheet.
type ReportExporter interface {
	Export(ctx context.Context, summary *domain.ReviewSummary) ([]byte, error)
}
