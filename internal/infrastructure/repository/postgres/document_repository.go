package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS proposers (
	proposer_id TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL,
	pan_number TEXT,
	dob TEXT,
	annual_income DOUBLE PRECISION NOT NULL DEFAULT 0,
	phone TEXT,
	address_line TEXT,
	city TEXT,
	state TEXT,
	pincode TEXT
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	proposer_id TEXT NOT NULL,
	document_type TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	extracted_data JSONB,
	validated BOOLEAN NOT NULL DEFAULT FALSE,
	processing_status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_proposer ON documents(proposer_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(processing_status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListByProposer(ctx context.Context, proposerID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, proposer_id, document_type, name, extracted_data, validated, processing_status, error_message, created_at, updated_at
FROM documents
WHERE proposer_id = $1
ORDER BY created_at ASC, id ASC
`, proposerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, proposer_id, document_type, name, extracted_data, validated, processing_status, error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "documents.get", err)
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) SaveExtraction(ctx context.Context, id string, payload *domain.ExtractedPayload, validated bool, status domain.ProcessingStatus) error {
	var payloadJSON any
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal extracted payload: %w", err)
		}
		payloadJSON = raw
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET extracted_data = $2, validated = $3, processing_status = $4, error_message = '', updated_at = $5
WHERE id = $1
`, id, payloadJSON, validated, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	return requireRow(res, "documents.save_extraction", id)
}

func (r *DocumentRepository) MarkStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET processing_status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark document status: %w", err)
	}
	return requireRow(res, "documents.mark_status", id)
}

func scanDocument(scan func(dest ...any) error) (*domain.Document, error) {
	var doc domain.Document
	var payloadRaw []byte
	var status string

	err := scan(
		&doc.ID, &doc.ProposerID, &doc.DocumentType, &doc.Name,
		&payloadRaw, &doc.Validated, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if len(payloadRaw) > 0 {
		payload, err := domain.ParsePayload(payloadRaw)
		if err != nil {
			return nil, fmt.Errorf("unmarshal extracted payload: %w", err)
		}
		doc.Extracted = payload
	}
	doc.Status = domain.ProcessingStatus(status)
	return &doc, nil
}

func requireRow(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("document %s", id))
	}
	return nil
}
