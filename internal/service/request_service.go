package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, request *models.DataSubjectRequest) error
	GetByID(ctx context.Context, id string) (*models.DataSubjectRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, at time.Time) error
	List(ctx context.Context, subjectID string, status models.RequestStatus) ([]models.DataSubjectRequest, error)
}

type erasureNoteService interface {
	ListBySubject(ctx context.Context, subjectID string) ([]models.Note, error)
	DeleteSystem(ctx context.Context, noteID string, withAudit bool) error
}

// RequestService tracks GDPR-style data subject requests through the
// submitted → in_review → {fulfilled, rejected} workflow. Fulfilling an
// erasure request hard-deletes the subject's notes under the same
// per-note locks the live mutation path uses.
type RequestService struct {
	repo   requestStore
	notes  erasureNoteService
	audit  auditLogger
	logger *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(repo requestStore, notes erasureNoteService, audit auditLogger, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{repo: repo, notes: notes, audit: audit, logger: logger}
}

// Submit opens a request in the submitted state.
func (s *RequestService) Submit(ctx context.Context, req dto.SubmitDataSubjectRequest, actor *models.JWTClaims) (*models.DataSubjectRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.ValidRequestType(req.RequestType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported request type")
	}

	request := &models.DataSubjectRequest{
		SubjectID:   req.SubjectID,
		RequestType: req.RequestType,
		Details:     req.Details,
		SubmittedBy: actor.UserID,
		Status:      models.RequestStatusSubmitted,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create data subject request")
	}
	return request, nil
}

// Get returns one request.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.DataSubjectRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && request.SubmittedBy != actor.UserID && request.SubjectID != actor.UserID {
		return nil, appErrors.ErrAccessDenied
	}
	return request, nil
}

// List returns requests filtered by subject and status. Non-admins only
// see requests they submitted or are the subject of.
func (s *RequestService) List(ctx context.Context, subjectID string, status models.RequestStatus, actor *models.JWTClaims) ([]models.DataSubjectRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if status != "" {
		switch status {
		case models.RequestStatusSubmitted, models.RequestStatusInReview, models.RequestStatusFulfilled, models.RequestStatusRejected:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported request status")
		}
	}
	requests, err := s.repo.List(ctx, subjectID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list data subject requests")
	}
	if actor.Role == models.RoleAdmin {
		return requests, nil
	}
	visible := requests[:0]
	for _, request := range requests {
		if request.SubmittedBy == actor.UserID || request.SubjectID == actor.UserID {
			visible = append(visible, request)
		}
	}
	return visible, nil
}

// UpdateStatus moves a request along the workflow. Admin only. Fulfilling
// an erasure request deletes the subject's notes before the transition is
// recorded, so a fulfilled status always means the data is gone.
func (s *RequestService) UpdateStatus(ctx context.Context, id string, next models.RequestStatus, actor *models.JWTClaims) (*models.DataSubjectRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrAccessDenied
	}

	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot transition from "+string(request.Status)+" to "+string(next))
	}

	if next == models.RequestStatusFulfilled && request.RequestType == models.RequestTypeErasure {
		if err := s.fulfilErasure(ctx, request, actor); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, request.Status, next, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrConcurrencyConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
	}
	request.Status = next
	request.UpdatedAt = now
	return request, nil
}

// fulfilErasure hard-deletes every note owned by or about the subject and
// appends one aggregate ledger entry instead of per-note delete entries.
func (s *RequestService) fulfilErasure(ctx context.Context, request *models.DataSubjectRequest, actor *models.JWTClaims) error {
	notes, err := s.notes.ListBySubject(ctx, request.SubjectID)
	if err != nil {
		return err
	}
	deleted := make([]string, 0, len(notes))
	for _, note := range notes {
		if err := s.notes.DeleteSystem(ctx, note.ID, false); err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				continue
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "erasure aborted: failed to delete note")
		}
		deleted = append(deleted, note.ID)
	}

	if s.audit != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"subject_id":    request.SubjectID,
			"deleted_notes": len(deleted),
			"note_ids":      deleted,
		})
		if err != nil {
			payload = []byte("{}")
		}
		entry := &models.AuditEntry{
			NoteID:    request.ID,
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			Action:    models.ActionErasure,
			Success:   true,
			NewValues: payload,
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Warn("failed to append erasure audit entry", zap.Error(err), zap.String("request_id", request.ID))
		}
	}
	return nil
}

func (s *RequestService) load(ctx context.Context, id string) (*models.DataSubjectRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load data subject request")
	}
	return request, nil
}
