package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

const requestColumns = `id, subject_id, request_type, details, submitted_by, status, created_at, updated_at`

// RequestRepository persists data subject requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a submitted request.
func (r *RequestRepository) Create(ctx context.Context, request *models.DataSubjectRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusSubmitted
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	const query = `INSERT INTO data_subject_requests
	(id, subject_id, request_type, details, submitted_by, status, created_at, updated_at)
	VALUES (:id, :subject_id, :request_type, :details, :submitted_by, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create data subject request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.DataSubjectRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM data_subject_requests WHERE id = $1`, requestColumns)
	var request models.DataSubjectRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateStatus transitions a request, guarded by the expected prior status.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, at time.Time) error {
	const query = `UPDATE data_subject_requests SET status = $2, updated_at = $3
	WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, to, at, from)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns requests matching the optional filters, newest first.
func (r *RequestRepository) List(ctx context.Context, subjectID string, status models.RequestStatus) ([]models.DataSubjectRequest, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if subjectID != "" {
		args = append(args, subjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	query := fmt.Sprintf("SELECT %s FROM data_subject_requests", requestColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var requests []models.DataSubjectRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list data subject requests: %w", err)
	}
	return requests, nil
}
