package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

func TestTagRepositorySeedPredefined(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()
	repo := NewTagRepository(db)

	for _, name := range []string{"goal-setting", "follow-up"} {
		mock.ExpectExec("INSERT INTO tag_records").
			WithArgs(name, models.TagCategoryPredefined, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	require.NoError(t, repo.SeedPredefined(context.Background(), []string{"goal-setting", "follow-up"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepositoryAdjustUsage(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()
	repo := NewTagRepository(db)

	mock.ExpectExec("UPDATE tag_records SET usage_count = GREATEST").
		WithArgs("goals", int64(-1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AdjustUsage(context.Background(), "goals", -1))
}

func TestTagRepositoryList(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()
	repo := NewTagRepository(db)

	rows := sqlmock.NewRows([]string{"name", "category", "usage_count", "created_at"}).
		AddRow("goals", "custom", int64(5), time.Now()).
		AddRow("follow-up", "predefined", int64(2), time.Now())
	mock.ExpectQuery("FROM tag_records ORDER BY usage_count DESC").
		WillReturnRows(rows)

	tags, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "goals", tags[0].Name)
	assert.Equal(t, int64(5), tags[0].UsageCount)
}
