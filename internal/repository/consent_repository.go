package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

const consentColumns = `id, subject_id, consent_type, granted, method, policy_version, withdrawn_at, created_at`

// ConsentRepository appends to and reads the consent ledger. Like the audit
// trail, the table is append-only at the storage layer.
type ConsentRepository struct {
	db *sqlx.DB
}

// NewConsentRepository constructs the repository.
func NewConsentRepository(db *sqlx.DB) *ConsentRepository {
	return &ConsentRepository{db: db}
}

// Create appends one consent record.
func (r *ConsentRepository) Create(ctx context.Context, record *models.ConsentRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO consent_records
	(id, subject_id, consent_type, granted, method, policy_version, withdrawn_at, created_at)
	VALUES (:id, :subject_id, :consent_type, :granted, :method, :policy_version, :withdrawn_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create consent record: %w", err)
	}
	return nil
}

// History returns all records for the subject and type, newest first.
func (r *ConsentRepository) History(ctx context.Context, subjectID string, consentType models.ConsentType) ([]models.ConsentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM consent_records
	WHERE subject_id = $1 AND consent_type = $2 ORDER BY created_at DESC`, consentColumns)
	var records []models.ConsentRecord
	if err := r.db.SelectContext(ctx, &records, query, subjectID, consentType); err != nil {
		return nil, fmt.Errorf("consent history: %w", err)
	}
	return records, nil
}

// Latest returns the most recent record for the subject and type, or
// sql.ErrNoRows when the ledger is empty for that pair.
func (r *ConsentRepository) Latest(ctx context.Context, subjectID string, consentType models.ConsentType) (*models.ConsentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM consent_records
	WHERE subject_id = $1 AND consent_type = $2 ORDER BY created_at DESC LIMIT 1`, consentColumns)
	var record models.ConsentRecord
	if err := r.db.GetContext(ctx, &record, query, subjectID, consentType); err != nil {
		return nil, err
	}
	return &record, nil
}
