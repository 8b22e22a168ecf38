package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

const bulkColumns = `id, kind, initiator_id, initiator_role, status, target_ids, params,
       success_count, failure_count, created_at, started_at, completed_at`

// BulkRepository persists bulk operations and their per-item results.
type BulkRepository struct {
	db *sqlx.DB
}

// NewBulkRepository constructs the repository.
func NewBulkRepository(db *sqlx.DB) *BulkRepository {
	return &BulkRepository{db: db}
}

// Create inserts a pending operation.
func (r *BulkRepository) Create(ctx context.Context, op *models.BulkOperation) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Status == "" {
		op.Status = models.BulkStatusPending
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	if op.TargetIDs == nil {
		op.TargetIDs = pq.StringArray{}
	}
	const query = `INSERT INTO bulk_operations
	(id, kind, initiator_id, initiator_role, status, target_ids, params, success_count, failure_count, created_at, started_at, completed_at)
	VALUES (:id, :kind, :initiator_id, :initiator_role, :status, :target_ids, :params, :success_count, :failure_count, :created_at, :started_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, op); err != nil {
		return fmt.Errorf("create bulk operation: %w", err)
	}
	return nil
}

// GetByID fetches an operation including its per-item results.
func (r *BulkRepository) GetByID(ctx context.Context, id string) (*models.BulkOperation, error) {
	query := fmt.Sprintf(`SELECT %s FROM bulk_operations WHERE id = $1`, bulkColumns)
	var op models.BulkOperation
	if err := r.db.GetContext(ctx, &op, query, id); err != nil {
		return nil, err
	}
	const itemsQuery = `SELECT operation_id, note_id, success, reason
	FROM bulk_operation_items WHERE operation_id = $1 ORDER BY note_id`
	if err := r.db.SelectContext(ctx, &op.Items, itemsQuery, id); err != nil {
		return nil, fmt.Errorf("load bulk items: %w", err)
	}
	return &op, nil
}

// MarkRunning transitions pending → running; sql.ErrNoRows when the
// operation was already picked up (idempotency guard).
func (r *BulkRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	const query = `UPDATE bulk_operations SET status = $2, started_at = $3
	WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.BulkStatusRunning, startedAt, models.BulkStatusPending)
	if err != nil {
		return fmt.Errorf("mark bulk running: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check bulk running rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Finalize persists the terminal status and aggregate counts.
func (r *BulkRepository) Finalize(ctx context.Context, op *models.BulkOperation) error {
	const query = `UPDATE bulk_operations
	SET status = :status, success_count = :success_count, failure_count = :failure_count, completed_at = :completed_at
	WHERE id = :id AND status = '` + string(models.BulkStatusRunning) + `'`
	result, err := r.db.NamedExecContext(ctx, query, op)
	if err != nil {
		return fmt.Errorf("finalize bulk operation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check bulk finalize rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveItem records one per-note outcome.
func (r *BulkRepository) SaveItem(ctx context.Context, item *models.BulkItemResult) error {
	const query = `INSERT INTO bulk_operation_items (operation_id, note_id, success, reason)
	VALUES (:operation_id, :note_id, :success, :reason)
	ON CONFLICT (operation_id, note_id) DO UPDATE SET success = EXCLUDED.success, reason = EXCLUDED.reason`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("save bulk item: %w", err)
	}
	return nil
}
