package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

const auditColumns = `id, note_id, actor_id, actor_role, action, success, denial_reason,
       old_values, new_values, created_at`

// AuditRepository appends to and queries the audit ledger. There is no
// update or delete method: the table carries append-only rules.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_entries
	(id, note_id, actor_id, actor_role, action, success, denial_reason, old_values, new_values, created_at)
	VALUES (:id, :note_id, :actor_id, :actor_role, :action, :success, :denial_reason, :old_values, :new_values, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

// Query returns matching entries newest-first plus the unpaged total.
func (r *AuditRepository) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if filter.NoteID != "" {
		args = append(args, filter.NoteID)
		conditions = append(conditions, fmt.Sprintf("note_id = $%d", len(args)))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Success != nil {
		args = append(args, *filter.Success)
		conditions = append(conditions, fmt.Sprintf("success = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_entries"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s FROM audit_entries%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		auditColumns, where, pageSize, offset)

	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	return entries, total, nil
}
