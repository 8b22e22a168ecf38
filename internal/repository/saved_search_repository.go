package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

const savedSearchColumns = `id, owner_id, name, query, version, created_at, updated_at`

// SavedSearchRepository persists named, versioned searches per owner.
type SavedSearchRepository struct {
	db *sqlx.DB
}

// NewSavedSearchRepository constructs the repository.
func NewSavedSearchRepository(db *sqlx.DB) *SavedSearchRepository {
	return &SavedSearchRepository{db: db}
}

// Create inserts a new saved search.
func (r *SavedSearchRepository) Create(ctx context.Context, search *models.SavedSearch) error {
	if search.ID == "" {
		search.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if search.CreatedAt.IsZero() {
		search.CreatedAt = now
	}
	search.UpdatedAt = now
	if search.Version == 0 {
		search.Version = 1
	}
	const query = `INSERT INTO saved_searches (id, owner_id, name, query, version, created_at, updated_at)
	VALUES (:id, :owner_id, :name, :query, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, search); err != nil {
		return fmt.Errorf("create saved search: %w", err)
	}
	return nil
}

// GetByID fetches a saved search.
func (r *SavedSearchRepository) GetByID(ctx context.Context, id string) (*models.SavedSearch, error) {
	query := fmt.Sprintf(`SELECT %s FROM saved_searches WHERE id = $1`, savedSearchColumns)
	var search models.SavedSearch
	if err := r.db.GetContext(ctx, &search, query, id); err != nil {
		return nil, err
	}
	return &search, nil
}

// ListByOwner returns the owner's saved searches, newest first.
func (r *SavedSearchRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.SavedSearch, error) {
	query := fmt.Sprintf(`SELECT %s FROM saved_searches WHERE owner_id = $1 ORDER BY updated_at DESC`, savedSearchColumns)
	var searches []models.SavedSearch
	if err := r.db.SelectContext(ctx, &searches, query, ownerID); err != nil {
		return nil, fmt.Errorf("list saved searches: %w", err)
	}
	return searches, nil
}

// Update replaces name/query and bumps the version, guarded optimistically.
func (r *SavedSearchRepository) Update(ctx context.Context, search *models.SavedSearch) error {
	previousVersion := search.Version
	search.Version++
	search.UpdatedAt = time.Now().UTC()
	const query = `UPDATE saved_searches SET name = :name, query = :query, version = :version, updated_at = :updated_at
	WHERE id = :id AND version = :previous_version`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               search.ID,
		"name":             search.Name,
		"query":            search.Query,
		"version":          search.Version,
		"updated_at":       search.UpdatedAt,
		"previous_version": previousVersion,
	})
	if err != nil {
		search.Version = previousVersion
		return fmt.Errorf("update saved search: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		search.Version = previousVersion
		return fmt.Errorf("check saved search rows: %w", err)
	}
	if rows == 0 {
		search.Version = previousVersion
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a saved search.
func (r *SavedSearchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_searches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete saved search: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check saved search delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
