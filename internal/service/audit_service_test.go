package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type auditRepoStub struct {
	entries    []models.AuditEntry
	lastFilter models.AuditFilter
}

func (r *auditRepoStub) Create(ctx context.Context, entry *models.AuditEntry) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *auditRepoStub) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error) {
	r.lastFilter = filter
	return r.entries, len(r.entries), nil
}

func TestAuditRecordSuccess(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, nil, nil)

	err := svc.Record(context.Background(), &models.AuditEntry{
		NoteID: "note-1", ActorID: "coach-1", ActorRole: models.RoleCoach,
		Action: models.ActionView, Success: true,
	})
	require.NoError(t, err)
	assert.Len(t, repo.entries, 1)
}

func TestAuditDenialRequiresReason(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, nil, nil)

	err := svc.Record(context.Background(), &models.AuditEntry{
		NoteID: "note-1", ActorID: "coach-1", Action: models.ActionView, Success: false,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	blank := "   "
	err = svc.Record(context.Background(), &models.AuditEntry{
		NoteID: "note-1", ActorID: "coach-1", Action: models.ActionView,
		Success: false, DenialReason: &blank,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	reason := models.DenialInsufficientAccess
	err = svc.Record(context.Background(), &models.AuditEntry{
		NoteID: "note-1", ActorID: "coach-1", Action: models.ActionView,
		Success: false, DenialReason: &reason,
	})
	require.NoError(t, err)
	assert.Len(t, repo.entries, 1)
}

func TestAuditQueryScopesNonAdmins(t *testing.T) {
	repo := &auditRepoStub{}
	svc := NewAuditService(repo, nil, nil)

	_, _, err := svc.Query(context.Background(), models.AuditFilter{ActorID: "someone-else"}, &models.JWTClaims{
		UserID: "coach-1", Role: models.RoleCoach,
	})
	require.NoError(t, err)
	assert.Equal(t, "coach-1", repo.lastFilter.ActorID)

	_, _, err = svc.Query(context.Background(), models.AuditFilter{ActorID: "someone-else"}, &models.JWTClaims{
		UserID: "admin-1", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "someone-else", repo.lastFilter.ActorID)
}

func TestAuditQueryPaginationDefaults(t *testing.T) {
	repo := &auditRepoStub{entries: []models.AuditEntry{{ID: "a"}, {ID: "b"}}}
	svc := NewAuditService(repo, nil, nil)

	_, pagination, err := svc.Query(context.Background(), models.AuditFilter{PageSize: 9999}, &models.JWTClaims{
		UserID: "admin-1", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 1, pagination.TotalPages)
}
