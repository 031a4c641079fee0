package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func docColumns() []string {
	return []string{
		"id", "proposer_id", "document_type", "name", "extracted_data",
		"validated", "processing_status", "error_message", "created_at", "updated_at",
	}
}

func TestListByProposerParsesStoredPayload(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	payload := []byte(`{"document_type":"payslip","extracted_data":{"name":"Anita Rao","salary":54000}}`)
	rows := sqlmock.NewRows(docColumns()).
		AddRow("doc-1", "prop-1", "payslip", "March payslip", payload, true, "verified", "", now, now).
		AddRow("doc-2", "prop-1", "pan_card", "", nil, false, "pending", "", now, now)

	mock.ExpectQuery("SELECT id, proposer_id, document_type").
		WithArgs("prop-1").
		WillReturnRows(rows)

	docs, err := repo.ListByProposer(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("ListByProposer() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Extracted == nil || docs[0].Extracted.Fields.Name != "Anita Rao" {
		t.Fatalf("expected parsed payload, got %+v", docs[0].Extracted)
	}
	if docs[1].Extracted != nil {
		t.Fatalf("expected nil payload for unprocessed document, got %+v", docs[1].Extracted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, proposer_id, document_type").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveExtractionReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", sqlmock.AnyArg(), true, string(domain.StatusVerified), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	payload := &domain.ExtractedPayload{DocumentType: string(domain.DocTypePayslip)}
	err := repo.SaveExtraction(context.Background(), "missing", payload, true, domain.StatusVerified)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkStatusUpdatesRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.StatusError), "extraction timed out", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkStatus(context.Background(), "doc-1", domain.StatusError, "extraction timed out"); err != nil {
		t.Fatalf("MarkStatus() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
