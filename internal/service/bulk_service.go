package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/jobs"
)

type bulkStore interface {
	Create(ctx context.Context, op *models.BulkOperation) error
	GetByID(ctx context.Context, id string) (*models.BulkOperation, error)
	MarkRunning(ctx context.Context, id string, startedAt time.Time) error
	Finalize(ctx context.Context, op *models.BulkOperation) error
	SaveItem(ctx context.Context, item *models.BulkItemResult) error
}

type bulkNoteMutator interface {
	Delete(ctx context.Context, noteID, reason string, actor *models.JWTClaims) error
	AddTags(ctx context.Context, noteID string, tags []string, reason string, actor *models.JWTClaims) (*models.Note, error)
	RemoveTags(ctx context.Context, noteID string, tags []string, reason string, actor *models.JWTClaims) (*models.Note, error)
	Archive(ctx context.Context, noteID string, req dto.ArchiveRequest, actor *models.JWTClaims) (*models.Note, error)
	Restore(ctx context.Context, noteID, reason string, actor *models.JWTClaims) (*models.Note, error)
	ChangePrivacy(ctx context.Context, noteID string, req dto.PrivacyChangeRequest, actor *models.JWTClaims) (*models.Note, error)
	AssignCategory(ctx context.Context, noteID string, req dto.CategoryAssignRequest, actor *models.JWTClaims) (*models.Note, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// BulkConfig bounds the executor.
type BulkConfig struct {
	WorkerConcurrency int
	MaxTargets        int
	ReportCacheTTL    time.Duration
}

// BulkService runs one mutation kind over many notes as a single trackable
// operation. Item failures never abort the run; each note's outcome is
// recorded individually and aggregated into a terminal report.
type BulkService struct {
	repo    bulkStore
	notes   bulkNoteMutator
	audit   auditLogger
	cache   reportCache
	queue   *jobs.Queue
	metrics *MetricsService
	cfg     BulkConfig
	logger  *zap.Logger
}

// NewBulkService constructs the service. Call BindQueue before Submit.
func NewBulkService(repo bulkStore, notes bulkNoteMutator, audit auditLogger, cache reportCache, metrics *MetricsService, cfg BulkConfig, logger *zap.Logger) *BulkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 4
	}
	if cfg.MaxTargets <= 0 {
		cfg.MaxTargets = 1000
	}
	if cfg.ReportCacheTTL <= 0 {
		cfg.ReportCacheTTL = 10 * time.Minute
	}
	return &BulkService{
		repo:    repo,
		notes:   notes,
		audit:   audit,
		cache:   cache,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
	}
}

// BindQueue attaches the background queue that drives Execute.
func (s *BulkService) BindQueue(queue *jobs.Queue) {
	s.queue = queue
}

// HandleJob is the queue handler: the payload is the operation id.
func (s *BulkService) HandleJob(ctx context.Context, job jobs.Job) error {
	operationID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("bulk job %s: unexpected payload type %T", job.ID, job.Payload)
	}
	return s.Execute(ctx, operationID)
}

// Submit validates, persists and enqueues a bulk operation. Duplicate
// target ids are collapsed before anything runs.
func (s *BulkService) Submit(ctx context.Context, req dto.SubmitBulkRequest, actor *models.JWTClaims) (*dto.SubmitBulkResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.ValidBulkKind(req.Kind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported bulk kind")
	}
	if err := validateBulkParams(req.Kind, req.Params); err != nil {
		return nil, err
	}

	targets := dedupe(req.NoteIDs)
	if len(targets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one note id is required")
	}
	if len(targets) > s.cfg.MaxTargets {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("too many targets: limit is %d", s.cfg.MaxTargets))
	}

	var params []byte
	if req.Params != nil {
		encoded, err := json.Marshal(req.Params)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk params")
		}
		params = encoded
	}

	op := &models.BulkOperation{
		Kind:          req.Kind,
		InitiatorID:   actor.UserID,
		InitiatorRole: actor.Role,
		Status:        models.BulkStatusPending,
		TargetIDs:     targets,
		Params:        params,
	}
	if err := s.repo.Create(ctx, op); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bulk operation")
	}

	s.recordAggregate(ctx, op, models.ActionBulkStart, map[string]interface{}{
		"kind":    op.Kind,
		"targets": len(targets),
	})

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{Type: "bulk_execute", Payload: op.ID}); err != nil {
			s.logger.Error("failed to enqueue bulk operation", zap.Error(err), zap.String("operation_id", op.ID))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue bulk operation")
		}
	}

	return &dto.SubmitBulkResponse{OperationID: op.ID, Status: op.Status}, nil
}

// Execute runs a pending operation to a terminal state. Re-executing an
// operation that already ran is a no-op: the pending→running transition
// is the idempotency guard, and previously recorded item outcomes are
// never re-applied.
func (s *BulkService) Execute(ctx context.Context, operationID string) error {
	op, err := s.repo.GetByID(ctx, operationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bulk operation")
	}
	if op.Status.Terminal() {
		return nil
	}
	if err := s.repo.MarkRunning(ctx, operationID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Another worker picked it up.
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start bulk operation")
	}

	var params models.BulkParams
	if len(op.Params) > 0 {
		if err := json.Unmarshal(op.Params, &params); err != nil {
			s.logger.Error("corrupt bulk params", zap.Error(err), zap.String("operation_id", op.ID))
		}
	}

	done := make(map[string]bool, len(op.Items))
	for _, item := range op.Items {
		if item.Success {
			done[item.NoteID] = true
		}
	}

	actor := &models.JWTClaims{UserID: op.InitiatorID, Role: op.InitiatorRole}

	var successCount, failureCount int64
	sem := make(chan struct{}, s.cfg.WorkerConcurrency)
	var wg sync.WaitGroup
	for _, noteID := range op.TargetIDs {
		if done[noteID] {
			atomic.AddInt64(&successCount, 1)
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(noteID string) {
			defer wg.Done()
			defer func() { <-sem }()

			item := models.BulkItemResult{OperationID: op.ID, NoteID: noteID, Success: true}
			if err := s.applyItem(ctx, op.Kind, params, noteID, actor); err != nil {
				reason := reasonOf(err)
				item.Success = false
				item.Reason = &reason
				atomic.AddInt64(&failureCount, 1)
			} else {
				atomic.AddInt64(&successCount, 1)
			}
			if s.metrics != nil {
				s.metrics.RecordBulkItem(op.Kind, item.Success)
			}
			if err := s.repo.SaveItem(ctx, &item); err != nil {
				s.logger.Error("failed to record bulk item", zap.Error(err),
					zap.String("operation_id", op.ID), zap.String("note_id", noteID))
			}
		}(noteID)
	}
	wg.Wait()

	op.SuccessCount = int(successCount)
	op.FailureCount = int(failureCount)
	op.Status = terminalStatus(op.SuccessCount, op.FailureCount)
	now := time.Now().UTC()
	op.CompletedAt = &now
	if err := s.repo.Finalize(ctx, op); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize bulk operation")
	}

	s.recordAggregate(ctx, op, models.ActionBulkComplete, map[string]interface{}{
		"status":        op.Status,
		"success_count": op.SuccessCount,
		"failure_count": op.FailureCount,
	})
	return nil
}

// Report returns the operation with per-item outcomes. Only the initiator
// and admins may read it; terminal reports are cached.
func (s *BulkService) Report(ctx context.Context, operationID string, actor *models.JWTClaims) (*models.BulkOperation, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	cacheKey := "bulk:report:" + operationID
	if s.cache != nil {
		var cached models.BulkOperation
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			if err := s.authorizeReport(&cached, actor); err != nil {
				return nil, err
			}
			return &cached, nil
		}
	}

	op, err := s.repo.GetByID(ctx, operationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bulk operation")
	}
	if err := s.authorizeReport(op, actor); err != nil {
		return nil, err
	}
	if s.cache != nil && op.Status.Terminal() {
		if err := s.cache.Set(ctx, cacheKey, op, s.cfg.ReportCacheTTL); err != nil {
			s.logger.Warn("failed to cache bulk report", zap.Error(err), zap.String("operation_id", op.ID))
		}
	}
	return op, nil
}

func (s *BulkService) authorizeReport(op *models.BulkOperation, actor *models.JWTClaims) error {
	if actor.Role == models.RoleAdmin || op.InitiatorID == actor.UserID {
		return nil
	}
	return appErrors.ErrAccessDenied
}

func (s *BulkService) applyItem(ctx context.Context, kind models.BulkKind, params models.BulkParams, noteID string, actor *models.JWTClaims) error {
	switch kind {
	case models.BulkKindDelete:
		return s.notes.Delete(ctx, noteID, "", actor)
	case models.BulkKindTagAdd:
		_, err := s.notes.AddTags(ctx, noteID, params.Tags, "", actor)
		return err
	case models.BulkKindTagRemove:
		_, err := s.notes.RemoveTags(ctx, noteID, params.Tags, "", actor)
		return err
	case models.BulkKindArchive:
		_, err := s.notes.Archive(ctx, noteID, dto.ArchiveRequest{ArchiveReason: params.ArchiveReason}, actor)
		return err
	case models.BulkKindRestore:
		_, err := s.notes.Restore(ctx, noteID, "", actor)
		return err
	case models.BulkKindPrivacyChange:
		req := dto.PrivacyChangeRequest{Privacy: params.Privacy}
		if params.AccessLevel != "" {
			level := params.AccessLevel
			req.AccessLevel = &level
		}
		_, err := s.notes.ChangePrivacy(ctx, noteID, req, actor)
		return err
	case models.BulkKindCategoryAssign:
		_, err := s.notes.AssignCategory(ctx, noteID, dto.CategoryAssignRequest{Category: params.Category}, actor)
		return err
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported bulk kind")
	}
}

// recordAggregate appends one operation-level ledger entry keyed by the
// operation id instead of a note id.
func (s *BulkService) recordAggregate(ctx context.Context, op *models.BulkOperation, action models.Action, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	entry := &models.AuditEntry{
		NoteID:    op.ID,
		ActorID:   op.InitiatorID,
		ActorRole: op.InitiatorRole,
		Action:    action,
		Success:   true,
		NewValues: payload,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to append bulk audit entry", zap.Error(err), zap.String("operation_id", op.ID))
	}
}

func validateBulkParams(kind models.BulkKind, params *models.BulkParams) error {
	switch kind {
	case models.BulkKindTagAdd, models.BulkKindTagRemove:
		if params == nil || len(params.Tags) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "tags are required for tag operations")
		}
	case models.BulkKindCategoryAssign:
		if params == nil || params.Category == "" {
			return appErrors.Clone(appErrors.ErrValidation, "category is required")
		}
	case models.BulkKindPrivacyChange:
		if params == nil || (params.Privacy == nil && params.AccessLevel == "") {
			return appErrors.Clone(appErrors.ErrValidation, "privacy settings or access level required")
		}
		if params.AccessLevel != "" && !models.ValidAccessLevel(params.AccessLevel) {
			return appErrors.Clone(appErrors.ErrValidation, "unsupported access level")
		}
	}
	return nil
}

func terminalStatus(successes, failures int) models.BulkStatus {
	switch {
	case failures == 0:
		return models.BulkStatusCompleted
	case successes == 0:
		return models.BulkStatusFailed
	default:
		return models.BulkStatusPartiallyFailed
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// reasonOf extracts a stable machine-readable reason from an item error.
func reasonOf(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		if appErr.Message != "" && appErr.Code == appErrors.ErrAccessDenied.Code {
			return appErr.Message
		}
		return appErr.Code
	}
	return err.Error()
}
