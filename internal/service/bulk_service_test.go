package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type bulkRepoStub struct {
	mu         sync.Mutex
	ops        map[string]*models.BulkOperation
	items      []models.BulkItemResult
	markErr    error
	markCalled int
}

func newBulkRepoStub(ops ...*models.BulkOperation) *bulkRepoStub {
	stub := &bulkRepoStub{ops: make(map[string]*models.BulkOperation)}
	for _, op := range ops {
		stub.ops[op.ID] = op
	}
	return stub
}

func (r *bulkRepoStub) Create(ctx context.Context, op *models.BulkOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op.ID == "" {
		op.ID = "op-1"
	}
	op.CreatedAt = time.Now().UTC()
	r.ops[op.ID] = op
	return nil
}

func (r *bulkRepoStub) GetByID(ctx context.Context, id string) (*models.BulkOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *op
	return &copied, nil
}

func (r *bulkRepoStub) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalled++
	if r.markErr != nil {
		return r.markErr
	}
	op := r.ops[id]
	op.Status = models.BulkStatusRunning
	op.StartedAt = &startedAt
	return nil
}

func (r *bulkRepoStub) Finalize(ctx context.Context, op *models.BulkOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.ID] = op
	return nil
}

func (r *bulkRepoStub) SaveItem(ctx context.Context, item *models.BulkItemResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *item)
	return nil
}

// bulkMutatorStub applies mutations by recording note ids, failing the ids
// listed in failWith.
type bulkMutatorStub struct {
	mu       sync.Mutex
	applied  []string
	failWith map[string]error
}

func (m *bulkMutatorStub) apply(noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failWith[noteID]; ok {
		return err
	}
	m.applied = append(m.applied, noteID)
	return nil
}

func (m *bulkMutatorStub) Delete(ctx context.Context, noteID, reason string, actor *models.JWTClaims) error {
	return m.apply(noteID)
}

func (m *bulkMutatorStub) AddTags(ctx context.Context, noteID string, tags []string, reason string, actor *models.JWTClaims) (*models.Note, error) {
	return nil, m.apply(noteID)
}

func (m *bulkMutatorStub) RemoveTags(ctx context.Context, noteID string, tags []string, reason string, actor *models.JWTClaims) (*models.Note, error) {
	return nil, m.apply(noteID)
}

func (m *bulkMutatorStub) Archive(ctx context.Context, noteID string, req dto.ArchiveRequest, actor *models.JWTClaims) (*models.Note, error) {
	return nil, m.apply(noteID)
}

func (m *bulkMutatorStub) Restore(ctx context.Context, noteID, reason string, actor *models.JWTClaims) (*models.Note, error) {
	return nil, m.apply(noteID)
}

func (m *bulkMutatorStub) ChangePrivacy(ctx context.Context, noteID string, req dto.PrivacyChangeRequest, actor *models.JWTClaims) (*models.Note, error) {
	return nil, m.apply(noteID)
}

func (m *bulkMutatorStub) AssignCategory(ctx context.Context, noteID string, req dto.CategoryAssignRequest, actor *models.JWTClaims) (*models.Note, error) {
	return nil, m.apply(noteID)
}

// newBulkService takes the audit sink as the interface so a nil argument
// stays a nil interface and exercises the service's no-audit path.
func newBulkService(repo *bulkRepoStub, mutator *bulkMutatorStub, audit auditLogger) *BulkService {
	return NewBulkService(repo, mutator, audit, nil, nil, BulkConfig{WorkerConcurrency: 2, MaxTargets: 10}, nil)
}

func TestBulkSubmitValidation(t *testing.T) {
	svc := newBulkService(newBulkRepoStub(), &bulkMutatorStub{}, nil)
	actor := coachClaims("coach-1")

	_, err := svc.Submit(context.Background(), dto.SubmitBulkRequest{Kind: "explode", NoteIDs: []string{"n1"}}, actor)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Submit(context.Background(), dto.SubmitBulkRequest{Kind: models.BulkKindTagAdd, NoteIDs: []string{"n1"}}, actor)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Submit(context.Background(), dto.SubmitBulkRequest{Kind: models.BulkKindArchive, NoteIDs: []string{"", ""}}, actor)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	many := make([]string, 11)
	for i := range many {
		many[i] = string(rune('a' + i))
	}
	_, err = svc.Submit(context.Background(), dto.SubmitBulkRequest{Kind: models.BulkKindArchive, NoteIDs: many}, actor)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestBulkSubmitDeduplicatesTargets(t *testing.T) {
	repo := newBulkRepoStub()
	audit := &auditRecorderStub{}
	svc := newBulkService(repo, &bulkMutatorStub{}, audit)

	resp, err := svc.Submit(context.Background(), dto.SubmitBulkRequest{
		Kind:    models.BulkKindArchive,
		NoteIDs: []string{"n1", "n2", "n1"},
	}, coachClaims("coach-1"))
	require.NoError(t, err)
	assert.Equal(t, models.BulkStatusPending, resp.Status)

	op := repo.ops[resp.OperationID]
	assert.Equal(t, []string{"n1", "n2"}, []string(op.TargetIDs))
	assert.Equal(t, models.RoleCoach, op.InitiatorRole)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.ActionBulkStart, audit.entries[0].Action)
	assert.Equal(t, resp.OperationID, audit.entries[0].NoteID)
}

func TestBulkExecutePartialFailure(t *testing.T) {
	op := &models.BulkOperation{
		ID:            "op-1",
		Kind:          models.BulkKindArchive,
		InitiatorID:   "coach-1",
		InitiatorRole: models.RoleCoach,
		Status:        models.BulkStatusPending,
		TargetIDs:     []string{"good-1", "denied-1", "good-2"},
	}
	repo := newBulkRepoStub(op)
	mutator := &bulkMutatorStub{failWith: map[string]error{
		"denied-1": appErrors.Denied(models.DenialInsufficientAccess),
	}}
	audit := &auditRecorderStub{}
	svc := newBulkService(repo, mutator, audit)

	require.NoError(t, svc.Execute(context.Background(), "op-1"))

	final := repo.ops["op-1"]
	assert.Equal(t, models.BulkStatusPartiallyFailed, final.Status)
	assert.Equal(t, 2, final.SuccessCount)
	assert.Equal(t, 1, final.FailureCount)
	assert.NotNil(t, final.CompletedAt)

	require.Len(t, repo.items, 3)
	for _, item := range repo.items {
		if item.NoteID == "denied-1" {
			assert.False(t, item.Success)
			require.NotNil(t, item.Reason)
			assert.Equal(t, models.DenialInsufficientAccess, *item.Reason)
		} else {
			assert.True(t, item.Success)
		}
	}

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.ActionBulkComplete, audit.entries[0].Action)
}

func TestBulkExecuteAllFail(t *testing.T) {
	op := &models.BulkOperation{
		ID: "op-1", Kind: models.BulkKindDelete, InitiatorID: "coach-1",
		Status: models.BulkStatusPending, TargetIDs: []string{"n1"},
	}
	repo := newBulkRepoStub(op)
	mutator := &bulkMutatorStub{failWith: map[string]error{"n1": appErrors.ErrNotFound}}
	svc := newBulkService(repo, mutator, nil)

	require.NoError(t, svc.Execute(context.Background(), "op-1"))
	assert.Equal(t, models.BulkStatusFailed, repo.ops["op-1"].Status)
	require.Len(t, repo.items, 1)
	assert.Equal(t, "NOT_FOUND", *repo.items[0].Reason)
}

func TestBulkExecuteTerminalIsNoOp(t *testing.T) {
	op := &models.BulkOperation{
		ID: "op-1", Kind: models.BulkKindArchive, InitiatorID: "coach-1",
		Status: models.BulkStatusCompleted, TargetIDs: []string{"n1"},
	}
	repo := newBulkRepoStub(op)
	mutator := &bulkMutatorStub{}
	svc := newBulkService(repo, mutator, nil)

	require.NoError(t, svc.Execute(context.Background(), "op-1"))
	assert.Empty(t, mutator.applied)
	assert.Zero(t, repo.markCalled)
}

func TestBulkExecuteSkipsRecordedSuccesses(t *testing.T) {
	op := &models.BulkOperation{
		ID: "op-1", Kind: models.BulkKindArchive, InitiatorID: "coach-1",
		Status:    models.BulkStatusPending,
		TargetIDs: []string{"done", "todo"},
		Items:     []models.BulkItemResult{{OperationID: "op-1", NoteID: "done", Success: true}},
	}
	repo := newBulkRepoStub(op)
	mutator := &bulkMutatorStub{}
	svc := newBulkService(repo, mutator, nil)

	require.NoError(t, svc.Execute(context.Background(), "op-1"))
	assert.Equal(t, []string{"todo"}, mutator.applied)
	assert.Equal(t, 2, repo.ops["op-1"].SuccessCount)
}

func TestBulkExecuteLostRaceIsNoOp(t *testing.T) {
	op := &models.BulkOperation{
		ID: "op-1", Kind: models.BulkKindArchive, InitiatorID: "coach-1",
		Status: models.BulkStatusPending, TargetIDs: []string{"n1"},
	}
	repo := newBulkRepoStub(op)
	repo.markErr = sql.ErrNoRows
	mutator := &bulkMutatorStub{}
	svc := newBulkService(repo, mutator, nil)

	require.NoError(t, svc.Execute(context.Background(), "op-1"))
	assert.Empty(t, mutator.applied)
}

func TestBulkReportAuthorization(t *testing.T) {
	op := &models.BulkOperation{
		ID: "op-1", Kind: models.BulkKindArchive, InitiatorID: "coach-1",
		Status: models.BulkStatusCompleted,
	}
	repo := newBulkRepoStub(op)
	svc := newBulkService(repo, &bulkMutatorStub{}, nil)

	_, err := svc.Report(context.Background(), "op-1", coachClaims("coach-1"))
	assert.NoError(t, err)

	_, err = svc.Report(context.Background(), "op-1", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	assert.NoError(t, err)

	_, err = svc.Report(context.Background(), "op-1", coachClaims("coach-2"))
	assert.True(t, appErrors.Is(err, appErrors.ErrAccessDenied))

	_, err = svc.Report(context.Background(), "missing", coachClaims("coach-1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
