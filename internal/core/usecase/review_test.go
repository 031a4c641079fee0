package usecase

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/core/taxonomy"
)

func medicalDoc(id string, results ...domain.ExtractedLabParameter) domain.Document {
	return domain.Document{
		ID:           id,
		ProposerID:   "prop-1",
		DocumentType: domain.DocTypeMedicalReport,
		Extracted: &domain.ExtractedPayload{
			LabResults:  results,
			PatientInfo: &domain.PatientInfo{Name: "John Smith"},
		},
		Validated: true,
		UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestReviewService(store *docStoreFake) *ReviewService {
	analyzer := NewAnalyzer(taxonomy.MustLoad(), DefaultComparatorConfig())
	return NewReviewService(store, &proposerStoreFake{record: testProposer()}, analyzer)
}

func TestReviewBuildsSummaryFromStoredPayloads(t *testing.T) {
	store := &docStoreFake{documents: []domain.Document{
		medicalDoc("doc-1",
			labRow("ALBUMIN", "4.1", "3.5-5.0"),
			labRow("SGOT/AST", "55", "0-40"),
		),
		pendingDoc("doc-2"),
	}}
	svc := newTestReviewService(store)

	summary, err := svc.Review(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}

	if len(summary.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(summary.Documents))
	}
	if summary.Documents[0].Status != domain.StatusVerified {
		t.Fatalf("stored validated payload should derive verified, got %s", summary.Documents[0].Status)
	}
	if summary.Documents[1].Status != domain.StatusPending {
		t.Fatalf("empty payload should derive pending, got %s", summary.Documents[1].Status)
	}

	if len(summary.Results) != 1 || !summary.Results[0].FromStored {
		t.Fatalf("expected one stored analysis, got %+v", summary.Results)
	}

	liver := summary.Combined.Categories[2]
	if liver == nil || len(liver.PresentParameters) != 2 {
		t.Fatalf("liver category should hold 2 matched parameters: %+v", liver)
	}
	// 1 normal of 5 declared liver sub-parameters.
	if summary.HealthScore.InRange != 1 || summary.HealthScore.Total != 5 {
		t.Fatalf("health score = %d/%d, want 1/5", summary.HealthScore.InRange, summary.HealthScore.Total)
	}
	if summary.FinanceScore.Score != "N/A" {
		t.Fatalf("no finance documents: score should be N/A, got %q", summary.FinanceScore.Score)
	}
}

func TestReviewIsIdempotentAcrossReloads(t *testing.T) {
	store := &docStoreFake{documents: []domain.Document{
		medicalDoc("doc-1", labRow("SERUM CREATININE", "1.1", "0.6-1.4")),
	}}
	svc := newTestReviewService(store)

	first, err := svc.Review(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("first Review() error = %v", err)
	}
	second, err := svc.Review(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("second Review() error = %v", err)
	}

	if !reflect.DeepEqual(first.HealthScore, second.HealthScore) {
		t.Fatalf("health score changed on reload: %+v vs %+v", first.HealthScore, second.HealthScore)
	}
	if !reflect.DeepEqual(first.Documents, second.Documents) {
		t.Fatalf("document statuses changed on reload")
	}
	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Fatalf("analysis results changed on reload")
	}
}

func TestReviewEvictsCacheForRemovedDocuments(t *testing.T) {
	store := &docStoreFake{documents: []domain.Document{
		medicalDoc("doc-1", labRow("ALBUMIN", "4.1", "3.5-5.0")),
		medicalDoc("doc-3", labRow("SERUM CREATININE", "1.1", "0.6-1.4")),
	}}
	svc := newTestReviewService(store)

	if _, err := svc.Review(context.Background(), "prop-1"); err != nil {
		t.Fatalf("first Review() error = %v", err)
	}
	if _, ok := svc.cache["doc-3"]; !ok {
		t.Fatalf("doc-3 analysis should be cached after first review")
	}

	store.documents = store.documents[:1]
	if _, err := svc.Review(context.Background(), "prop-1"); err != nil {
		t.Fatalf("second Review() error = %v", err)
	}
	if _, ok := svc.cache["doc-3"]; ok {
		t.Fatalf("removed document must be evicted from the cache")
	}
	if _, ok := svc.cache["doc-1"]; !ok {
		t.Fatalf("surviving document must stay cached")
	}
}

func TestReviewFailsWhenDocumentListFails(t *testing.T) {
	store := &docStoreFake{listErr: domain.ErrTemporary}
	svc := newTestReviewService(store)
	if _, err := svc.Review(context.Background(), "prop-1"); err == nil {
		t.Fatalf("document list failure is a whole-screen failure")
	}
}

func TestAnalyzeFinanceWithoutProposerFails(t *testing.T) {
	analyzer := NewAnalyzer(taxonomy.MustLoad(), DefaultComparatorConfig())
	doc := pendingDoc("doc-1")
	result := analyzer.Analyze(&doc, financePayload(true), nil)
	if result.Success {
		t.Fatalf("missing proposer record must be a hard failure for the document")
	}
}

func TestAnalyzeMedicalIdentity(t *testing.T) {
	analyzer := NewAnalyzer(taxonomy.MustLoad(), DefaultComparatorConfig())
	doc := medicalDoc("doc-1", labRow("ALBUMIN", "4.1", "3.5-5.0"))
	result := analyzer.Analyze(&doc, doc.Extracted, testProposer())
	if !result.Success {
		t.Fatalf("Analyze() failed: %s", result.Error)
	}
	if result.Identity == nil || result.Identity.NameMatch == nil || !*result.Identity.NameMatch {
		t.Fatalf("patient John Smith should match proposer John A. Smith: %+v", result.Identity)
	}
	if !Validated(result) {
		t.Fatalf("matching identity should validate the medical document")
	}
}
