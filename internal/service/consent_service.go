package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type consentStore interface {
	Create(ctx context.Context, record *models.ConsentRecord) error
	History(ctx context.Context, subjectID string, consentType models.ConsentType) ([]models.ConsentRecord, error)
	Latest(ctx context.Context, subjectID string, consentType models.ConsentType) (*models.ConsentRecord, error)
}

// ConsentService owns the append-only consent ledger. Grants and
// withdrawals only ever add records; history is never rewritten.
type ConsentService struct {
	repo          consentStore
	logger        *zap.Logger
	policyVersion string
}

// NewConsentService constructs the service.
func NewConsentService(repo consentStore, policyVersion string, logger *zap.Logger) *ConsentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsentService{repo: repo, logger: logger, policyVersion: policyVersion}
}

// RecordConsent appends a grant (or an explicit denial) for the subject.
func (s *ConsentService) RecordConsent(ctx context.Context, req dto.RecordConsentRequest) (*models.ConsentRecord, error) {
	if req.SubjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subjectId is required")
	}
	if !models.ValidConsentType(req.ConsentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported consent type")
	}
	record := &models.ConsentRecord{
		SubjectID:     req.SubjectID,
		ConsentType:   req.ConsentType,
		Granted:       req.Granted,
		Method:        req.Method,
		PolicyVersion: s.policyVersion,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record consent")
	}
	return record, nil
}

// Withdraw appends a withdrawal record for an active grant. The original
// grant row is left untouched.
func (s *ConsentService) Withdraw(ctx context.Context, req dto.WithdrawConsentRequest) (*models.ConsentRecord, error) {
	if req.SubjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subjectId is required")
	}
	if !models.ValidConsentType(req.ConsentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported consent type")
	}
	status, err := s.CurrentStatus(ctx, req.SubjectID, req.ConsentType)
	if err != nil {
		return nil, err
	}
	if status != models.ConsentStatusGranted {
		return nil, appErrors.ErrConsentNotGranted
	}
	now := time.Now().UTC()
	record := &models.ConsentRecord{
		SubjectID:     req.SubjectID,
		ConsentType:   req.ConsentType,
		Granted:       false,
		Method:        req.Reason,
		PolicyVersion: s.policyVersion,
		WithdrawnAt:   &now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record withdrawal")
	}
	return record, nil
}

// CurrentStatus computes the subject's live consent state for a purpose:
// the most recent record wins; a withdrawal or explicit denial reads as
// denied; an empty ledger reads as unknown.
func (s *ConsentService) CurrentStatus(ctx context.Context, subjectID string, consentType models.ConsentType) (models.ConsentStatus, error) {
	latest, err := s.repo.Latest(ctx, subjectID, consentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ConsentStatusUnknown, nil
		}
		return models.ConsentStatusUnknown, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read consent ledger")
	}
	if latest.Granted && latest.WithdrawnAt == nil {
		return models.ConsentStatusGranted, nil
	}
	return models.ConsentStatusDenied, nil
}

// History returns the full ledger for a subject and purpose, newest first.
func (s *ConsentService) History(ctx context.Context, subjectID string, consentType models.ConsentType) ([]models.ConsentRecord, error) {
	records, err := s.repo.History(ctx, subjectID, consentType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read consent history")
	}
	return records, nil
}
