package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

type directoryStore interface {
	Profile(ctx context.Context, userID string) (*models.StaffProfile, error)
}

type consentChecker interface {
	CurrentStatus(ctx context.Context, subjectID string, consentType models.ConsentType) (models.ConsentStatus, error)
}

// Actor is the already-authenticated identity an evaluation runs for. Reason
// carries the operator-supplied justification when a note demands one;
// whitespace-only reasons count as absent.
type Actor struct {
	ID     string
	Role   models.UserRole
	Reason string
}

// HasReason reports whether a non-empty access reason was supplied.
func (a Actor) HasReason() bool {
	return strings.TrimSpace(a.Reason) != ""
}

// AccessService is the single access-control decision point. Evaluate is a
// pure decision: it never mutates state and never writes audit entries; the
// calling service records the outcome, success or denial.
type AccessService struct {
	directory directoryStore
	consent   consentChecker
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAccessService constructs the evaluator.
func NewAccessService(directory directoryStore, consent consentChecker, metrics *MetricsService, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{directory: directory, consent: consent, metrics: metrics, logger: logger}
}

// Evaluate decides whether actor may perform action on note.
func (s *AccessService) Evaluate(ctx context.Context, actor Actor, note *models.Note, action models.Action) models.Decision {
	decision := s.evaluate(ctx, actor, note, action)
	if s.metrics != nil {
		s.metrics.RecordDecision(action, decision)
	}
	return decision
}

func (s *AccessService) evaluate(ctx context.Context, actor Actor, note *models.Note, action models.Action) models.Decision {
	if note == nil {
		return models.Deny(models.DenialNotFound)
	}

	isOwner := actor.ID == note.OwnerID
	isAdmin := actor.Role == models.RoleAdmin

	switch action {
	case models.ActionShare:
		if !isOwner && !isAdmin {
			return models.Deny(models.DenialInsufficientAccess)
		}
		if !note.AllowSharing {
			return models.Deny(models.DenialSharingDisabled)
		}
		return models.Allow()
	case models.ActionUnshare:
		// Revoking a share is always legal for owner/admin, even after the
		// owner has since disabled sharing.
		if isOwner || isAdmin {
			return models.Allow()
		}
		return models.Deny(models.DenialInsufficientAccess)
	}

	// Export is gated on the note's allow_export switch regardless of who
	// asks, owner and admin included.
	if action == models.ActionExport && !note.AllowExport {
		return models.Deny(models.DenialExportDisabled)
	}

	if isOwner || isAdmin {
		return models.Allow()
	}

	switch action {
	case models.ActionView, models.ActionExport:
		if s.tierPermits(ctx, actor.ID, note) || (note.AllowSharing && note.SharedWithContains(actor.ID)) {
			// The reason gate sits in front of an otherwise-permitted
			// non-owner read so the caller can prompt and retry.
			if note.RequireReason && !actor.HasReason() {
				return models.Deny(models.DenialReasonRequired)
			}
			return models.Allow()
		}
	}

	return models.Deny(models.DenialInsufficientAccess)
}

// ConsentAllows reports whether the subject currently grants the purpose.
// Used only for consent-gated flows (analytics, GDPR export); ordinary read
// access is governed by the note's access level, not consent.
func (s *AccessService) ConsentAllows(ctx context.Context, subjectID string, consentType models.ConsentType) bool {
	if s.consent == nil {
		return false
	}
	status, err := s.consent.CurrentStatus(ctx, subjectID, consentType)
	if err != nil {
		s.logger.Warn("consent lookup failed", zap.Error(err), zap.String("subject_id", subjectID))
		return false
	}
	return status == models.ConsentStatusGranted
}

// tierPermits resolves the note's access level against the org directory.
// Private never matches here; sharedWith is handled separately.
func (s *AccessService) tierPermits(ctx context.Context, actorID string, note *models.Note) bool {
	if note.AccessLevel == models.AccessLevelPrivate || s.directory == nil {
		return false
	}
	actorProfile, err := s.lookup(ctx, actorID)
	if err != nil || actorProfile == nil {
		return false
	}
	ownerProfile, err := s.lookup(ctx, note.OwnerID)
	if err != nil || ownerProfile == nil {
		return false
	}

	switch note.AccessLevel {
	case models.AccessLevelSupervisor:
		return ownerProfile.SupervisorID != nil && *ownerProfile.SupervisorID == actorID
	case models.AccessLevelTeam:
		return actorProfile.TeamID != "" && actorProfile.TeamID == ownerProfile.TeamID
	case models.AccessLevelOrganization:
		return actorProfile.OrgID != "" && actorProfile.OrgID == ownerProfile.OrgID
	}
	return false
}

func (s *AccessService) lookup(ctx context.Context, userID string) (*models.StaffProfile, error) {
	profile, err := s.directory.Profile(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("directory lookup failed", zap.Error(err), zap.String("user_id", userID))
		}
		return nil, err
	}
	return profile, nil
}
