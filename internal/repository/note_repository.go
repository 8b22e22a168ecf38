package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

const noteColumns = `id, owner_id, client_id, session_id, title, body, category, tags,
       access_level, allow_export, allow_sharing, require_reason, sensitive_content,
       supervision_required, auto_delete_after_days, retention_period_days, shared_with,
       encrypted, is_archived, archive_reason, access_count, last_accessed_at,
       version, created_at, updated_at`

// NoteRepository persists notes and their privacy state.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a new note row.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now
	if note.Version == 0 {
		note.Version = 1
	}
	if note.Tags == nil {
		note.Tags = pq.StringArray{}
	}
	if note.SharedWith == nil {
		note.SharedWith = pq.StringArray{}
	}
	const query = `INSERT INTO notes
	(id, owner_id, client_id, session_id, title, body, category, tags,
	 access_level, allow_export, allow_sharing, require_reason, sensitive_content,
	 supervision_required, auto_delete_after_days, retention_period_days, shared_with,
	 encrypted, is_archived, archive_reason, access_count, last_accessed_at,
	 version, created_at, updated_at)
	VALUES (:id, :owner_id, :client_id, :session_id, :title, :body, :category, :tags,
	 :access_level, :allow_export, :allow_sharing, :require_reason, :sensitive_content,
	 :supervision_required, :auto_delete_after_days, :retention_period_days, :shared_with,
	 :encrypted, :is_archived, :archive_reason, :access_count, :last_accessed_at,
	 :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// GetByID fetches a note by identifier.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes WHERE id = $1`, noteColumns)
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		return nil, err
	}
	return &note, nil
}

// Update persists the full note row guarded by an optimistic version check.
// Returns sql.ErrNoRows when the version no longer matches (lost race).
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	previousVersion := note.Version
	note.Version++
	note.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notes SET
	 title = :title, body = :body, category = :category, tags = :tags,
	 access_level = :access_level, allow_export = :allow_export, allow_sharing = :allow_sharing,
	 require_reason = :require_reason, sensitive_content = :sensitive_content,
	 supervision_required = :supervision_required, auto_delete_after_days = :auto_delete_after_days,
	 retention_period_days = :retention_period_days, shared_with = :shared_with,
	 encrypted = :encrypted, is_archived = :is_archived, archive_reason = :archive_reason,
	 version = :version, updated_at = :updated_at
	WHERE id = :id AND version = :previous_version`
	params := map[string]interface{}{
		"id":                     note.ID,
		"title":                  note.Title,
		"body":                   note.Body,
		"category":               note.Category,
		"tags":                   note.Tags,
		"access_level":           note.AccessLevel,
		"allow_export":           note.AllowExport,
		"allow_sharing":          note.AllowSharing,
		"require_reason":         note.RequireReason,
		"sensitive_content":      note.SensitiveContent,
		"supervision_required":   note.SupervisionRequired,
		"auto_delete_after_days": note.AutoDeleteAfterDays,
		"retention_period_days":  note.RetentionPeriodDays,
		"shared_with":            note.SharedWith,
		"encrypted":              note.Encrypted,
		"is_archived":            note.IsArchived,
		"archive_reason":         note.ArchiveReason,
		"version":                note.Version,
		"updated_at":             note.UpdatedAt,
		"previous_version":       previousVersion,
	}
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		note.Version = previousVersion
		return fmt.Errorf("update note: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		note.Version = previousVersion
		return fmt.Errorf("check note update rows: %w", err)
	}
	if rows == 0 {
		note.Version = previousVersion
		return sql.ErrNoRows
	}
	return nil
}

// IncrementAccess bumps the access telemetry after a permitted view/export.
func (r *NoteRepository) IncrementAccess(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE notes SET access_count = access_count + 1, last_accessed_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("increment note access: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check note access rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete hard-removes a note. This is the only deletion path; archive is a
// flag on the row, not a removal.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check note delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns notes matching the structural filter, newest first.
func (r *NoteRepository) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 8)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM notes", noteColumns))

	conditions := make([]string, 0, 8)
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if !filter.IncludeArchived {
		conditions = append(conditions, "is_archived = FALSE")
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// ListRetentionCandidates returns live notes carrying either age threshold.
func (r *NoteRepository) ListRetentionCandidates(ctx context.Context) ([]models.Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes
	WHERE auto_delete_after_days IS NOT NULL OR (retention_period_days IS NOT NULL AND is_archived = FALSE)`, noteColumns)
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query); err != nil {
		return nil, fmt.Errorf("list retention candidates: %w", err)
	}
	return notes, nil
}

// ListBySubject returns all notes owned by or exclusively about the subject,
// the erasure surface for a data subject request.
func (r *NoteRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes WHERE owner_id = $1 OR client_id = $1`, noteColumns)
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, subjectID); err != nil {
		return nil, fmt.Errorf("list notes by subject: %w", err)
	}
	return notes, nil
}
