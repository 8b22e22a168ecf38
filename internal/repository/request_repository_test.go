package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

func TestRequestRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO data_subject_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.DataSubjectRequest{
		SubjectID: "client-1", RequestType: models.RequestTypeErasure, SubmittedBy: "coach-1",
	}
	require.NoError(t, repo.Create(context.Background(), request))
	assert.NotEmpty(t, request.ID)
	assert.Equal(t, models.RequestStatusSubmitted, request.Status)
}

func TestRequestRepositoryUpdateStatusGuard(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE data_subject_requests SET status").
		WithArgs("req-1", models.RequestStatusInReview, at, models.RequestStatusSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusSubmitted, models.RequestStatusInReview, at))

	// Stale prior status matches no rows.
	mock.ExpectExec("UPDATE data_subject_requests SET status").
		WithArgs("req-1", models.RequestStatusInReview, at, models.RequestStatusSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusSubmitted, models.RequestStatusInReview, at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newNoteRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "subject_id", "request_type", "status"}).
		AddRow("req-1", "client-1", "erasure", "submitted")
	mock.ExpectQuery("FROM data_subject_requests WHERE subject_id = (.+) AND status").
		WithArgs("client-1", models.RequestStatusSubmitted).
		WillReturnRows(rows)

	requests, err := repo.List(context.Background(), "client-1", models.RequestStatusSubmitted)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.RequestTypeErasure, requests[0].RequestType)
}
