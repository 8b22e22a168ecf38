package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

// DirectoryRepository reads the mirrored org structure used for the
// supervisor/team/organization access tiers. The engine never writes it.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// Profile fetches the staff profile for a user; sql.ErrNoRows when unknown.
func (r *DirectoryRepository) Profile(ctx context.Context, userID string) (*models.StaffProfile, error) {
	const query = `SELECT user_id, team_id, org_id, supervisor_id FROM staff_profiles WHERE user_id = $1`
	var profile models.StaffProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}
