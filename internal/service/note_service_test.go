package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type noteRepoStub struct {
	notes       map[string]*models.Note
	updateErr   error
	deleted     []string
	incremented []string
}

func newNoteRepoStub(notes ...*models.Note) *noteRepoStub {
	stub := &noteRepoStub{notes: make(map[string]*models.Note)}
	for _, note := range notes {
		stub.notes[note.ID] = note
	}
	return stub
}

func (r *noteRepoStub) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = "generated-id"
	}
	note.Version = 1
	r.notes[note.ID] = note
	return nil
}

func (r *noteRepoStub) GetByID(ctx context.Context, id string) (*models.Note, error) {
	note, ok := r.notes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *note
	return &copied, nil
}

func (r *noteRepoStub) Update(ctx context.Context, note *models.Note) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	note.Version++
	r.notes[note.ID] = note
	return nil
}

func (r *noteRepoStub) IncrementAccess(ctx context.Context, id string, at time.Time) error {
	r.incremented = append(r.incremented, id)
	return nil
}

func (r *noteRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.notes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.notes, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *noteRepoStub) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	var out []models.Note
	for _, note := range r.notes {
		out = append(out, *note)
	}
	return out, nil
}

func (r *noteRepoStub) ListRetentionCandidates(ctx context.Context) ([]models.Note, error) {
	return r.List(ctx, models.NoteFilter{})
}

func (r *noteRepoStub) ListBySubject(ctx context.Context, subjectID string) ([]models.Note, error) {
	var out []models.Note
	for _, note := range r.notes {
		if note.ClientID == subjectID {
			out = append(out, *note)
		}
	}
	return out, nil
}

type accessStub struct {
	decision models.Decision
}

func (a *accessStub) Evaluate(ctx context.Context, actor Actor, note *models.Note, action models.Action) models.Decision {
	return a.decision
}

type auditRecorderStub struct {
	entries []*models.AuditEntry
	err     error
}

func (a *auditRecorderStub) Record(ctx context.Context, entry *models.AuditEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

type tagTrackerStub struct {
	added   []string
	removed []string
}

func (t *tagTrackerStub) Normalize(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func (t *tagTrackerStub) Track(ctx context.Context, added, removed []string) error {
	t.added = append(t.added, added...)
	t.removed = append(t.removed, removed...)
	return nil
}

func coachClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleCoach}
}

func TestNoteServiceCreate(t *testing.T) {
	repo := newNoteRepoStub()
	audit := &auditRecorderStub{}
	tags := &tagTrackerStub{}
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, tags, audit, nil)

	note, err := svc.Create(context.Background(), dto.CreateNoteRequest{
		ClientID:  "client-1",
		SessionID: "session-1",
		Body:      "session summary",
		Tags:      []string{"Follow Up", "follow-up"},
	}, coachClaims("coach-1"))
	require.NoError(t, err)

	assert.Equal(t, "coach-1", note.OwnerID)
	assert.Equal(t, models.AccessLevelPrivate, note.AccessLevel)
	assert.Equal(t, []string{"follow-up"}, []string(note.Tags))
	assert.Equal(t, []string{"follow-up"}, tags.added)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.ActionModify, audit.entries[0].Action)
	assert.True(t, audit.entries[0].Success)
}

func TestNoteServiceCreateValidation(t *testing.T) {
	svc := NewNoteService(newNoteRepoStub(), &accessStub{decision: models.Allow()}, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateNoteRequest{SessionID: "s"}, coachClaims("coach-1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), dto.CreateNoteRequest{
		ClientID: "c", SessionID: "s", AccessLevel: "public",
	}, coachClaims("coach-1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestNoteServiceGetBumpsTelemetryAndAudits(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1", ClientID: "client-1", Version: 3}
	repo := newNoteRepoStub(note)
	audit := &auditRecorderStub{}
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, nil, audit, nil)

	got, err := svc.Get(context.Background(), "note-1", "", coachClaims("coach-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AccessCount)
	assert.NotNil(t, got.LastAccessedAt)
	assert.Equal(t, []string{"note-1"}, repo.incremented)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.ActionView, audit.entries[0].Action)
	assert.True(t, audit.entries[0].Success)
	assert.Nil(t, audit.entries[0].DenialReason)
}

func TestNoteServiceGetDeniedIsAudited(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1"}
	repo := newNoteRepoStub(note)
	audit := &auditRecorderStub{}
	svc := NewNoteService(repo, &accessStub{decision: models.Deny(models.DenialInsufficientAccess)}, nil, audit, nil)

	_, err := svc.Get(context.Background(), "note-1", "", coachClaims("intruder"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAccessDenied))
	assert.Equal(t, models.DenialInsufficientAccess, appErrors.FromError(err).Message)

	// The denied attempt still lands in the ledger, and telemetry stays put.
	require.Len(t, audit.entries, 1)
	assert.False(t, audit.entries[0].Success)
	require.NotNil(t, audit.entries[0].DenialReason)
	assert.Equal(t, models.DenialInsufficientAccess, *audit.entries[0].DenialReason)
	assert.Empty(t, repo.incremented)
}

func TestNoteServiceGetNotFound(t *testing.T) {
	svc := NewNoteService(newNoteRepoStub(), &accessStub{decision: models.Allow()}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "missing", "", coachClaims("coach-1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestNoteServiceUpdateVersionConflict(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1", Version: 2}
	repo := newNoteRepoStub(note)
	repo.updateErr = sql.ErrNoRows
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, nil, &auditRecorderStub{}, nil)

	body := "revised"
	_, err := svc.Update(context.Background(), "note-1", dto.UpdateNoteRequest{Body: &body}, coachClaims("coach-1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrConcurrencyConflict))
}

func TestNoteServiceUpdateRecordsDiff(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1", Tags: []string{"intake"}}
	repo := newNoteRepoStub(note)
	audit := &auditRecorderStub{}
	tags := &tagTrackerStub{}
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, tags, audit, nil)

	updated, err := svc.Update(context.Background(), "note-1", dto.UpdateNoteRequest{
		Tags: []string{"intake", "Progress"},
	}, coachClaims("coach-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"intake", "progress"}, []string(updated.Tags))
	assert.Equal(t, []string{"progress"}, tags.added)
	assert.Empty(t, tags.removed)
	require.Len(t, audit.entries, 1)
	assert.NotEmpty(t, audit.entries[0].OldValues)
	assert.NotEmpty(t, audit.entries[0].NewValues)
}

func TestNoteServiceAddAndRemoveTags(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1", Tags: []string{"intake"}}
	repo := newNoteRepoStub(note)
	tags := &tagTrackerStub{}
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, tags, &auditRecorderStub{}, nil)

	updated, err := svc.AddTags(context.Background(), "note-1", []string{"intake", "goals"}, "", coachClaims("coach-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"intake", "goals"}, []string(updated.Tags))
	assert.Equal(t, []string{"goals"}, tags.added)

	updated, err = svc.RemoveTags(context.Background(), "note-1", []string{"intake", "absent"}, "", coachClaims("coach-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"goals"}, []string(updated.Tags))
	assert.Equal(t, []string{"intake"}, tags.removed)
}

func TestNoteServiceShareAndUnshare(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1", AllowSharing: true, SharedWith: []string{"peer-1"}}
	repo := newNoteRepoStub(note)
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, nil, &auditRecorderStub{}, nil)

	shared, err := svc.Share(context.Background(), "note-1", dto.ShareRequest{UserIDs: []string{"peer-1", "peer-2", ""}}, coachClaims("coach-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"peer-1", "peer-2"}, []string(shared.SharedWith))

	unshared, err := svc.Unshare(context.Background(), "note-1", dto.ShareRequest{UserIDs: []string{"peer-1"}}, coachClaims("coach-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"peer-2"}, []string(unshared.SharedWith))
}

func TestNoteServiceChangePrivacyClearsShareList(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1", AllowSharing: true, SharedWith: []string{"peer-1", "peer-2"}}
	repo := newNoteRepoStub(note)
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, nil, &auditRecorderStub{}, nil)

	updated, err := svc.ChangePrivacy(context.Background(), "note-1", dto.PrivacyChangeRequest{
		Privacy: &models.PrivacySettings{AllowSharing: false, AllowExport: true},
	}, coachClaims("coach-1"))
	require.NoError(t, err)
	assert.False(t, updated.AllowSharing)
	assert.Empty(t, updated.SharedWith)
}

func TestNoteServiceDeleteDenied(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1"}
	repo := newNoteRepoStub(note)
	audit := &auditRecorderStub{}
	svc := NewNoteService(repo, &accessStub{decision: models.Deny(models.DenialInsufficientAccess)}, nil, audit, nil)

	err := svc.Delete(context.Background(), "note-1", "", coachClaims("intruder"))
	assert.True(t, appErrors.Is(err, appErrors.ErrAccessDenied))
	assert.Empty(t, repo.deleted)
	require.Len(t, audit.entries, 1)
	assert.False(t, audit.entries[0].Success)
}

func TestNoteServiceArchiveAndRestore(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1"}
	repo := newNoteRepoStub(note)
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, nil, &auditRecorderStub{}, nil)

	archived, err := svc.Archive(context.Background(), "note-1", dto.ArchiveRequest{}, coachClaims("coach-1"))
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	require.NotNil(t, archived.ArchiveReason)
	assert.Equal(t, "archived_by_user", *archived.ArchiveReason)

	restored, err := svc.Restore(context.Background(), "note-1", "", coachClaims("coach-1"))
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)
	assert.Nil(t, restored.ArchiveReason)
}

func TestNoteServiceDeleteSystemAuditToggle(t *testing.T) {
	repo := newNoteRepoStub(
		&models.Note{ID: "note-1", OwnerID: "coach-1"},
		&models.Note{ID: "note-2", OwnerID: "coach-1"},
	)
	audit := &auditRecorderStub{}
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, nil, audit, nil)

	require.NoError(t, svc.DeleteSystem(context.Background(), "note-1", true))
	require.Len(t, audit.entries, 1)
	assert.Equal(t, SystemActorID, audit.entries[0].ActorID)
	assert.Equal(t, models.ActionDelete, audit.entries[0].Action)

	// Aggregate-audited callers suppress the per-note entry.
	require.NoError(t, svc.DeleteSystem(context.Background(), "note-2", false))
	assert.Len(t, audit.entries, 1)
}

func TestNoteServiceAuditFailureIsSwallowed(t *testing.T) {
	note := &models.Note{ID: "note-1", OwnerID: "coach-1"}
	repo := newNoteRepoStub(note)
	audit := &auditRecorderStub{err: assert.AnError}
	svc := NewNoteService(repo, &accessStub{decision: models.Allow()}, nil, audit, nil)

	_, err := svc.Get(context.Background(), "note-1", "", coachClaims("coach-1"))
	assert.NoError(t, err)
}
