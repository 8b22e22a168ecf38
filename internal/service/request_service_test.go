package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type requestRepoStub struct {
	requests  map[string]*models.DataSubjectRequest
	updateErr error
}

func newRequestRepoStub(requests ...*models.DataSubjectRequest) *requestRepoStub {
	stub := &requestRepoStub{requests: make(map[string]*models.DataSubjectRequest)}
	for _, request := range requests {
		stub.requests[request.ID] = request
	}
	return stub
}

func (r *requestRepoStub) Create(ctx context.Context, request *models.DataSubjectRequest) error {
	if request.ID == "" {
		request.ID = "req-1"
	}
	request.CreatedAt = time.Now().UTC()
	r.requests[request.ID] = request
	return nil
}

func (r *requestRepoStub) GetByID(ctx context.Context, id string) (*models.DataSubjectRequest, error) {
	request, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *request
	return &copied, nil
}

func (r *requestRepoStub) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, at time.Time) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	request, ok := r.requests[id]
	if !ok || request.Status != from {
		return sql.ErrNoRows
	}
	request.Status = to
	request.UpdatedAt = at
	return nil
}

func (r *requestRepoStub) List(ctx context.Context, subjectID string, status models.RequestStatus) ([]models.DataSubjectRequest, error) {
	var out []models.DataSubjectRequest
	for _, request := range r.requests {
		if subjectID != "" && request.SubjectID != subjectID {
			continue
		}
		if status != "" && request.Status != status {
			continue
		}
		out = append(out, *request)
	}
	return out, nil
}

type erasureNotesStub struct {
	notes   map[string][]models.Note
	deleted []string
}

func (s *erasureNotesStub) ListBySubject(ctx context.Context, subjectID string) ([]models.Note, error) {
	return s.notes[subjectID], nil
}

func (s *erasureNotesStub) DeleteSystem(ctx context.Context, noteID string, withAudit bool) error {
	s.deleted = append(s.deleted, noteID)
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestRequestSubmit(t *testing.T) {
	repo := newRequestRepoStub()
	svc := NewRequestService(repo, &erasureNotesStub{}, nil, nil)

	request, err := svc.Submit(context.Background(), dto.SubmitDataSubjectRequest{
		SubjectID:   "client-1",
		RequestType: models.RequestTypeErasure,
		Details:     "forget me",
	}, coachClaims("coach-1"))
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusSubmitted, request.Status)
	assert.Equal(t, "coach-1", request.SubmittedBy)

	_, err = svc.Submit(context.Background(), dto.SubmitDataSubjectRequest{
		SubjectID: "client-1", RequestType: "oblivion",
	}, coachClaims("coach-1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRequestGetVisibility(t *testing.T) {
	request := &models.DataSubjectRequest{
		ID: "req-1", SubjectID: "client-1", SubmittedBy: "coach-1",
		RequestType: models.RequestTypeAccess, Status: models.RequestStatusSubmitted,
	}
	svc := NewRequestService(newRequestRepoStub(request), &erasureNotesStub{}, nil, nil)

	_, err := svc.Get(context.Background(), "req-1", coachClaims("coach-1"))
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), "req-1", coachClaims("client-1"))
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), "req-1", adminClaims())
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), "req-1", coachClaims("bystander"))
	assert.True(t, appErrors.Is(err, appErrors.ErrAccessDenied))
}

func TestRequestListScopesNonAdmins(t *testing.T) {
	svc := NewRequestService(newRequestRepoStub(
		&models.DataSubjectRequest{ID: "mine", SubjectID: "client-1", SubmittedBy: "coach-1"},
		&models.DataSubjectRequest{ID: "theirs", SubjectID: "client-2", SubmittedBy: "coach-2"},
	), &erasureNotesStub{}, nil, nil)

	mine, err := svc.List(context.Background(), "", "", coachClaims("coach-1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].ID)

	all, err := svc.List(context.Background(), "", "", adminClaims())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(context.Background(), "", "lost", adminClaims())
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRequestStatusTransitions(t *testing.T) {
	request := &models.DataSubjectRequest{
		ID: "req-1", SubjectID: "client-1", SubmittedBy: "coach-1",
		RequestType: models.RequestTypeAccess, Status: models.RequestStatusSubmitted,
	}
	repo := newRequestRepoStub(request)
	svc := NewRequestService(repo, &erasureNotesStub{}, nil, nil)

	// Skipping review is illegal.
	_, err := svc.UpdateStatus(context.Background(), "req-1", models.RequestStatusFulfilled, adminClaims())
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	updated, err := svc.UpdateStatus(context.Background(), "req-1", models.RequestStatusInReview, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInReview, updated.Status)

	updated, err = svc.UpdateStatus(context.Background(), "req-1", models.RequestStatusRejected, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, updated.Status)

	// Terminal states are frozen.
	_, err = svc.UpdateStatus(context.Background(), "req-1", models.RequestStatusInReview, adminClaims())
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestRequestUpdateStatusAdminOnly(t *testing.T) {
	request := &models.DataSubjectRequest{
		ID: "req-1", Status: models.RequestStatusSubmitted, RequestType: models.RequestTypeAccess,
	}
	svc := NewRequestService(newRequestRepoStub(request), &erasureNotesStub{}, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "req-1", models.RequestStatusInReview, coachClaims("coach-1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrAccessDenied))
}

func TestRequestUpdateStatusConflict(t *testing.T) {
	request := &models.DataSubjectRequest{
		ID: "req-1", Status: models.RequestStatusSubmitted, RequestType: models.RequestTypeAccess,
	}
	repo := newRequestRepoStub(request)
	repo.updateErr = sql.ErrNoRows
	svc := NewRequestService(repo, &erasureNotesStub{}, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "req-1", models.RequestStatusInReview, adminClaims())
	assert.True(t, appErrors.Is(err, appErrors.ErrConcurrencyConflict))
}

func TestRequestErasureFulfilmentDeletesNotes(t *testing.T) {
	request := &models.DataSubjectRequest{
		ID: "req-1", SubjectID: "client-1", SubmittedBy: "coach-1",
		RequestType: models.RequestTypeErasure, Status: models.RequestStatusInReview,
	}
	repo := newRequestRepoStub(request)
	notes := &erasureNotesStub{notes: map[string][]models.Note{
		"client-1": {{ID: "note-1"}, {ID: "note-2"}},
	}}
	audit := &auditRecorderStub{}
	svc := NewRequestService(repo, notes, audit, nil)

	updated, err := svc.UpdateStatus(context.Background(), "req-1", models.RequestStatusFulfilled, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusFulfilled, updated.Status)
	assert.Equal(t, []string{"note-1", "note-2"}, notes.deleted)

	// One aggregate entry keyed by the request id, not per-note entries.
	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, models.ActionErasure, entry.Action)
	assert.Equal(t, "req-1", entry.NoteID)

	var payload struct {
		SubjectID    string   `json:"subject_id"`
		DeletedNotes int      `json:"deleted_notes"`
		NoteIDs      []string `json:"note_ids"`
	}
	require.NoError(t, json.Unmarshal(entry.NewValues, &payload))
	assert.Equal(t, "client-1", payload.SubjectID)
	assert.Equal(t, 2, payload.DeletedNotes)
}

func TestRequestNonErasureFulfilmentTouchesNothing(t *testing.T) {
	request := &models.DataSubjectRequest{
		ID: "req-1", SubjectID: "client-1", SubmittedBy: "coach-1",
		RequestType: models.RequestTypeAccess, Status: models.RequestStatusInReview,
	}
	notes := &erasureNotesStub{notes: map[string][]models.Note{
		"client-1": {{ID: "note-1"}},
	}}
	svc := NewRequestService(newRequestRepoStub(request), notes, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "req-1", models.RequestStatusFulfilled, adminClaims())
	require.NoError(t, err)
	assert.Empty(t, notes.deleted)
}
