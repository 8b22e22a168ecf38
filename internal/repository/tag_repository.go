package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

// TagRepository maintains the tag vocabulary and usage counters.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository constructs the repository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// SeedPredefined upserts the fixed taxonomy without touching usage counts.
func (r *TagRepository) SeedPredefined(ctx context.Context, names []string) error {
	const query = `INSERT INTO tag_records (name, category, usage_count, created_at)
	VALUES ($1, $2, 0, $3)
	ON CONFLICT (name) DO UPDATE SET category = EXCLUDED.category`
	now := time.Now().UTC()
	for _, name := range names {
		if _, err := r.db.ExecContext(ctx, query, name, models.TagCategoryPredefined, now); err != nil {
			return fmt.Errorf("seed predefined tag %q: %w", name, err)
		}
	}
	return nil
}

// Ensure registers a custom tag if the vocabulary does not know it yet.
func (r *TagRepository) Ensure(ctx context.Context, name string) error {
	const query = `INSERT INTO tag_records (name, category, usage_count, created_at)
	VALUES ($1, $2, 0, $3) ON CONFLICT (name) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, name, models.TagCategoryCustom, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure tag %q: %w", name, err)
	}
	return nil
}

// AdjustUsage shifts the usage counter by delta, clamped at zero.
func (r *TagRepository) AdjustUsage(ctx context.Context, name string, delta int64) error {
	const query = `UPDATE tag_records SET usage_count = GREATEST(usage_count + $2, 0) WHERE name = $1`
	if _, err := r.db.ExecContext(ctx, query, name, delta); err != nil {
		return fmt.Errorf("adjust tag usage %q: %w", name, err)
	}
	return nil
}

// List returns the full vocabulary ordered by usage, most used first.
func (r *TagRepository) List(ctx context.Context) ([]models.TagRecord, error) {
	const query = `SELECT name, category, usage_count, created_at
	FROM tag_records ORDER BY usage_count DESC, name ASC`
	var tags []models.TagRecord
	if err := r.db.SelectContext(ctx, &tags, query); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}
