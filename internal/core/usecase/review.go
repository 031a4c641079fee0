package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/core/ports"
)

// ReviewService assembles the proposer-level review view from stored
// payloads. Each payload is normalized into a DocumentAnalysisResult once and
// cached by document id; the cache entry is invalidated when the document's
// update timestamp moves.
type ReviewService struct {
	docs      ports.DocumentStore
	proposers ports.ProposerStore
	analyzer  *Analyzer

	mu    sync.Mutex
	cache map[string]cachedAnalysis
}

type cachedAnalysis struct {
	proposerID string
	updatedAt  time.Time
	result     domain.DocumentAnalysisResult
}

// maxCachedAnalyses bounds the cache across proposers; hitting it resets the
// whole cache, which only costs one re-analysis per stored payload.
const maxCachedAnalyses = 4096

func NewReviewService(docs ports.DocumentStore, proposers ports.ProposerStore, analyzer *Analyzer) *ReviewService {
	return &ReviewService{
		docs:      docs,
		proposers: proposers,
		analyzer:  analyzer,
		cache:     make(map[string]cachedAnalysis),
	}
}

// Review builds the combined view for one proposer purely from persisted
// state; it never calls the extraction service. Failure to load the proposer
// record or the document list is a whole-screen failure for the caller.
func (s *ReviewService) Review(ctx context.Context, proposerID string) (*domain.ReviewSummary, error) {
	proposer, err := s.proposers.GetByID(ctx, proposerID)
	if err != nil {
		return nil, fmt.Errorf("fetch proposer record: %w", err)
	}
	documents, err := s.docs.ListByProposer(ctx, proposerID)
	if err != nil {
		return nil, fmt.Errorf("fetch document list: %w", err)
	}
	s.evictStale(proposerID, documents)

	summary := &domain.ReviewSummary{
		Proposer:  proposer,
		Documents: make([]domain.DocumentStatusView, 0, len(documents)),
	}

	for i := range documents {
		doc := &documents[i]
		summary.Documents = append(summary.Documents, domain.DocumentStatusView{
			DocumentID:   doc.ID,
			DocumentType: doc.DocumentType,
			Name:         doc.Name,
			Status:       domain.DeriveStatus(doc),
			Validated:    doc.Validated,
			Error:        doc.Error,
		})
		if doc.Extracted.Empty() {
			continue
		}
		result := s.analyzed(doc, proposer)
		result.FromStored = true
		summary.Results = append(summary.Results, result)
	}

	summary.Combined = CombineResults(s.analyzer.Categories(), summary.Results)
	summary.HealthScore = HealthScore(summary.Combined.Categories)
	summary.FinanceScore = FinanceScore(summary.Results)
	return summary, nil
}

func (s *ReviewService) analyzed(doc *domain.Document, proposer *domain.ProposerRecord) domain.DocumentAnalysisResult {
	s.mu.Lock()
	entry, ok := s.cache[doc.ID]
	s.mu.Unlock()
	if ok && entry.updatedAt.Equal(doc.UpdatedAt) {
		return entry.result
	}

	result := s.analyzer.Analyze(doc, doc.Extracted, proposer)
	s.mu.Lock()
	if len(s.cache) >= maxCachedAnalyses {
		s.cache = make(map[string]cachedAnalysis)
	}
	s.cache[doc.ID] = cachedAnalysis{proposerID: doc.ProposerID, updatedAt: doc.UpdatedAt, result: result}
	s.mu.Unlock()
	return result
}

// evictStale drops cache entries for documents no longer in the proposer's
// list, so deleted documents do not pin analyses forever.
func (s *ReviewService) evictStale(proposerID string, documents []domain.Document) {
	current := make(map[string]struct{}, len(documents))
	for i := range documents {
		current[documents[i].ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.cache {
		if entry.proposerID != proposerID {
			continue
		}
		if _, ok := current[id]; !ok {
			delete(s.cache, id)
		}
	}
}
