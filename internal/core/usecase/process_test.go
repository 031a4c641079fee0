package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/core/taxonomy"
)

type docStoreFake struct {
	mu          sync.Mutex
	documents   []domain.Document
	listErr     error
	saveErr     error
	saved       []savedExtraction
	statusCalls []statusCall
}

type savedExtraction struct {
	id        string
	validated bool
	status    domain.ProcessingStatus
}

type statusCall struct {
	id     string
	status domain.ProcessingStatus
	errMsg string
}

func (f *docStoreFake) ListByProposer(context.Context, string) ([]domain.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Document, len(f.documents))
	copy(out, f.documents)
	return out, nil
}

func (f *docStoreFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	for i := range f.documents {
		if f.documents[i].ID == id {
			doc := f.documents[i]
			return &doc, nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (f *docStoreFake) SaveExtraction(_ context.Context, id string, _ *domain.ExtractedPayload, validated bool, status domain.ProcessingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, savedExtraction{id: id, validated: validated, status: status})
	return nil
}

func (f *docStoreFake) MarkStatus(_ context.Context, id string, status domain.ProcessingStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{id: id, status: status, errMsg: errMsg})
	return nil
}

func (f *docStoreFake) errorMarks() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []statusCall
	for _, c := range f.statusCalls {
		if c.status == domain.StatusError {
			out = append(out, c)
		}
	}
	return out
}

type proposerStoreFake struct {
	record *domain.ProposerRecord
	err    error
}

func (f *proposerStoreFake) GetByID(context.Context, string) (*domain.ProposerRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type extractorFake struct {
	mu       sync.Mutex
	payloads map[string]*domain.ExtractedPayload
	failIDs  map[string]error
	calls    []string
	started  chan string
	release  chan struct{}
}

func (f *extractorFake) ProcessDocument(ctx context.Context, documentID string) (*domain.ExtractedPayload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, documentID)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- documentID
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.failIDs[documentID]; ok {
		return nil, err
	}
	return f.payloads[documentID], nil
}

func (f *extractorFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.StatusEvent
}

func (f *publisherFake) PublishRunRequested(context.Context, string) error { return nil }

func (f *publisherFake) PublishStatusChanged(_ context.Context, event domain.StatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func financePayload(match bool) *domain.ExtractedPayload {
	return &domain.ExtractedPayload{
		Fields: domain.ExtractedFields{
			Name:      "John Smith",
			PANNumber: "ABCDE1234F",
			Salary:    pickSalary(match),
		},
	}
}

func pickSalary(match bool) float64 {
	if match {
		return 50000
	}
	return 10
}

func pendingDoc(id string) domain.Document {
	return domain.Document{
		ID:           id,
		ProposerID:   "prop-1",
		DocumentType: domain.DocTypePayslip,
		Status:       domain.StatusPending,
	}
}

func newTestProcessor(store *docStoreFake, extractor *extractorFake, events *publisherFake) *ReviewProcessor {
	analyzer := NewAnalyzer(taxonomy.MustLoad(), DefaultComparatorConfig())
	return NewReviewProcessor(
		store,
		&proposerStoreFake{record: testProposer()},
		extractor,
		events,
		analyzer,
		time.Millisecond,
	)
}

func TestRunProcessesSequentiallyAndPersists(t *testing.T) {
	store := &docStoreFake{documents: []domain.Document{
		pendingDoc("doc-1"),
		pendingDoc("doc-2"),
	}}
	extractor := &extractorFake{payloads: map[string]*domain.ExtractedPayload{
		"doc-1": financePayload(true),
		"doc-2": financePayload(false),
	}}
	events := &publisherFake{}
	processor := newTestProcessor(store, extractor, events)

	if err := processor.Run(context.Background(), "prop-1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := extractor.calls; len(got) != 2 || got[0] != "doc-1" || got[1] != "doc-2" {
		t.Fatalf("extraction order = %v, want [doc-1 doc-2]", got)
	}
	if len(store.saved) != 2 {
		t.Fatalf("saved extractions = %d, want 2", len(store.saved))
	}
	if store.saved[0].status != domain.StatusVerified || !store.saved[0].validated {
		t.Fatalf("doc-1 should verify: %+v", store.saved[0])
	}
	if store.saved[1].status != domain.StatusMismatch || store.saved[1].validated {
		t.Fatalf("doc-2 should mismatch: %+v", store.saved[1])
	}
}

func TestRunSkipsDocumentsWithStoredPayload(t *testing.T) {
	processed := pendingDoc("doc-1")
	processed.Extracted = financePayload(true)
	processed.Validated = true

	store := &docStoreFake{documents: []domain.Document{processed, pendingDoc("doc-2")}}
	extractor := &extractorFake{payloads: map[string]*domain.ExtractedPayload{
		"doc-2": financePayload(true),
	}}
	processor := newTestProcessor(store, extractor, &publisherFake{})

	if err := processor.Run(context.Background(), "prop-1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := extractor.calls; len(got) != 1 || got[0] != "doc-2" {
		t.Fatalf("stored payload must not be re-extracted, calls = %v", got)
	}
}

func TestRunContinuesPastDocumentFailure(t *testing.T) {
	store := &docStoreFake{documents: []domain.Document{
		pendingDoc("doc-1"),
		pendingDoc("doc-2"),
		pendingDoc("doc-3"),
	}}
	extractor := &extractorFake{
		payloads: map[string]*domain.ExtractedPayload{
			"doc-1": financePayload(true),
			"doc-3": financePayload(true),
		},
		failIDs: map[string]error{"doc-2": errors.New("502 bad gateway")},
	}
	processor := newTestProcessor(store, extractor, &publisherFake{})

	if err := processor.Run(context.Background(), "prop-1"); err != nil {
		t.Fatalf("partial failure must not fail the run: %v", err)
	}
	if extractor.callCount() != 3 {
		t.Fatalf("extraction calls = %d, want 3", extractor.callCount())
	}
	marks := store.errorMarks()
	if len(marks) != 1 || marks[0].id != "doc-2" {
		t.Fatalf("error marks = %+v, want only doc-2", marks)
	}
	if len(store.saved) != 2 {
		t.Fatalf("saved extractions = %d, want 2 (doc-1 and doc-3)", len(store.saved))
	}
}

func TestRunCancellationLeavesRemainingUntouched(t *testing.T) {
	store := &docStoreFake{documents: []domain.Document{
		pendingDoc("doc-1"),
		pendingDoc("doc-2"),
		pendingDoc("doc-3"),
	}}
	extractor := &extractorFake{
		payloads: map[string]*domain.ExtractedPayload{"doc-1": financePayload(true)},
		started:  make(chan string, 3),
		release:  make(chan struct{}),
	}
	processor := newTestProcessor(store, extractor, &publisherFake{})

	done := make(chan error, 1)
	go func() {
		done <- processor.Run(context.Background(), "prop-1")
	}()

	// Let doc-1 finish, then cancel while doc-2 is in flight.
	<-extractor.started
	extractor.release <- struct{}{}
	<-extractor.started
	if !processor.Cancel("prop-1") {
		t.Fatalf("expected an active run to cancel")
	}

	if err := <-done; err != nil {
		t.Fatalf("cancellation must not surface as an error: %v", err)
	}
	if extractor.callCount() != 2 {
		t.Fatalf("extraction calls = %d, want 2 (doc-3 never dispatched)", extractor.callCount())
	}
	if marks := store.errorMarks(); len(marks) != 0 {
		t.Fatalf("cancelled documents must not be marked error: %+v", marks)
	}
	if len(store.saved) != 1 || store.saved[0].id != "doc-1" {
		t.Fatalf("only doc-1 should persist, saved = %+v", store.saved)
	}
}

func TestRunIsSingleFlightPerProposer(t *testing.T) {
	store := &docStoreFake{documents: []domain.Document{pendingDoc("doc-1")}}
	extractor := &extractorFake{
		payloads: map[string]*domain.ExtractedPayload{"doc-1": financePayload(true)},
		started:  make(chan string, 1),
		release:  make(chan struct{}),
	}
	processor := newTestProcessor(store, extractor, &publisherFake{})

	done := make(chan error, 1)
	go func() {
		done <- processor.Run(context.Background(), "prop-1")
	}()
	<-extractor.started

	if err := processor.Run(context.Background(), "prop-1"); !domain.IsKind(err, domain.ErrRunActive) {
		t.Fatalf("re-trigger while running should be ErrRunActive, got %v", err)
	}

	progress := processor.Progress("prop-1")
	if !progress.Active || progress.Total != 1 {
		t.Fatalf("unexpected progress snapshot: %+v", progress)
	}

	close(extractor.release)
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if processor.Progress("prop-1").Active {
		t.Fatalf("progress must go inactive after the run ends")
	}
}

func TestRunFailsWhenProposerFetchFails(t *testing.T) {
	processor := NewReviewProcessor(
		&docStoreFake{},
		&proposerStoreFake{err: domain.ErrProposerNotFound},
		&extractorFake{},
		&publisherFake{},
		NewAnalyzer(taxonomy.MustLoad(), DefaultComparatorConfig()),
		time.Millisecond,
	)
	if err := processor.Run(context.Background(), "prop-1"); err == nil {
		t.Fatalf("missing proposer record is a whole-run failure")
	}
}

func TestRunReportsPhaseString(t *testing.T) {
	store := &docStoreFake{documents: []domain.Document{pendingDoc("doc-1")}}
	extractor := &extractorFake{
		payloads: map[string]*domain.ExtractedPayload{"doc-1": financePayload(true)},
		started:  make(chan string, 1),
		release:  make(chan struct{}),
	}
	processor := newTestProcessor(store, extractor, &publisherFake{})

	done := make(chan error, 1)
	go func() {
		done <- processor.Run(context.Background(), "prop-1")
	}()
	<-extractor.started

	progress := processor.Progress("prop-1")
	want := "Processing document 1 of 1: payslip"
	if progress.Phase != want {
		t.Fatalf("phase = %q, want %q", progress.Phase, want)
	}

	close(extractor.release)
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
