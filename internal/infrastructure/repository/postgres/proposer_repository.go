package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

type ProposerRepository struct {
	db *sql.DB
}

func NewProposerRepository(db *sql.DB) *ProposerRepository {
	return &ProposerRepository{db: db}
}

func (r *ProposerRepository) GetByID(ctx context.Context, proposerID string) (*domain.ProposerRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT proposer_id, customer_name, pan_number, dob, annual_income, phone, address_line, city, state, pincode
FROM proposers
WHERE proposer_id = $1
`, proposerID)

	// The optional columns are nullable in the schema and rows are written by
	// the external persistence side, so NULLs are expected.
	var rec domain.ProposerRecord
	var pan, dob, phone, address, city, state, pincode sql.NullString
	err := row.Scan(
		&rec.ProposerID, &rec.CustomerName, &pan, &dob, &rec.AnnualIncome,
		&phone, &address, &city, &state, &pincode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrProposerNotFound, "proposers.get", err)
		}
		return nil, fmt.Errorf("scan proposer: %w", err)
	}
	rec.PANNumber = pan.String
	rec.DOB = dob.String
	rec.Phone = phone.String
	rec.AddressLine = address.String
	rec.City = city.String
	rec.State = state.String
	rec.Pincode = pincode.String
	return &rec, nil
}
