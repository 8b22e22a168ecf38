package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/lock"
)

type noteStore interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id string) (*models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	IncrementAccess(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.NoteFilter) ([]models.Note, error)
	ListRetentionCandidates(ctx context.Context) ([]models.Note, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.Note, error)
}

type accessEvaluator interface {
	Evaluate(ctx context.Context, actor Actor, note *models.Note, action models.Action) models.Decision
}

type tagTracker interface {
	Normalize(tags []string) []string
	Track(ctx context.Context, added, removed []string) error
}

// SystemActorID marks mutations originating from the engine itself
// (retention passes, erasure fulfilment) in the audit trail.
const SystemActorID = "system"

// NoteService is the single mutation chokepoint for notes. Every write
// passes access control first and lands in the audit trail afterwards;
// same-note mutations serialize on a per-note lock.
type NoteService struct {
	repo   noteStore
	access accessEvaluator
	tags   tagTracker
	audit  auditLogger
	locks  *lock.Keyed
	logger *zap.Logger
}

// NewNoteService constructs the service.
func NewNoteService(repo noteStore, access accessEvaluator, tags tagTracker, audit auditLogger, logger *zap.Logger) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{
		repo:   repo,
		access: access,
		tags:   tags,
		audit:  audit,
		locks:  lock.NewKeyed(),
		logger: logger,
	}
}

// Create stores a new note owned by the acting coach.
func (s *NoteService) Create(ctx context.Context, req dto.CreateNoteRequest, actor *models.JWTClaims) (*models.Note, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.ClientID == "" || req.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "clientId and sessionId are required")
	}
	level := req.AccessLevel
	if level == "" {
		level = models.AccessLevelPrivate
	}
	if !models.ValidAccessLevel(level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported access level")
	}

	note := &models.Note{
		OwnerID:     actor.UserID,
		ClientID:    req.ClientID,
		SessionID:   req.SessionID,
		Title:       req.Title,
		Body:        req.Body,
		Category:    strings.TrimSpace(req.Category),
		AccessLevel: level,
		Encrypted:   req.Encrypted,
	}
	if s.tags != nil {
		note.Tags = s.tags.Normalize(req.Tags)
	} else {
		note.Tags = req.Tags
	}
	if req.Privacy != nil {
		applyPrivacy(note, *req.Privacy)
	}
	// The share list only exists while sharing is enabled.
	if !note.AllowSharing {
		note.SharedWith = nil
	}

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}
	s.trackTags(ctx, note.Tags, nil)
	s.record(ctx, actorFromClaims(actor), note.ID, models.ActionModify, models.Allow(), nil, snapshot(note))
	return note, nil
}

// Get returns the note when the actor may view it. A permitted read bumps
// the access telemetry; every attempt, allowed or denied, is audited.
func (s *NoteService) Get(ctx context.Context, noteID, reason string, actor *models.JWTClaims) (*models.Note, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	act := actorFromClaims(actor)
	act.Reason = reason

	var result *models.Note
	err := s.locks.WithLock(noteID, func() error {
		note, err := s.load(ctx, noteID)
		if err != nil {
			return err
		}
		decision := s.access.Evaluate(ctx, act, note, models.ActionView)
		s.record(ctx, act, noteID, models.ActionView, decision, nil, nil)
		if !decision.Allowed {
			return appErrors.Denied(decision.Reason)
		}
		now := time.Now().UTC()
		if err := s.repo.IncrementAccess(ctx, noteID, now); err != nil {
			s.logger.Warn("failed to bump access telemetry", zap.Error(err), zap.String("note_id", noteID))
		} else {
			note.AccessCount++
			note.LastAccessedAt = &now
		}
		result = note
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExportView returns the note for export when the actor may export it,
// bumping telemetry and auditing the attempt like a read.
func (s *NoteService) ExportView(ctx context.Context, noteID, reason string, actor *models.JWTClaims) (*models.Note, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	act := actorFromClaims(actor)
	act.Reason = reason

	var result *models.Note
	err := s.locks.WithLock(noteID, func() error {
		note, err := s.load(ctx, noteID)
		if err != nil {
			return err
		}
		decision := s.access.Evaluate(ctx, act, note, models.ActionExport)
		s.record(ctx, act, noteID, models.ActionExport, decision, nil, nil)
		if !decision.Allowed {
			return appErrors.Denied(decision.Reason)
		}
		now := time.Now().UTC()
		if err := s.repo.IncrementAccess(ctx, noteID, now); err != nil {
			s.logger.Warn("failed to bump access telemetry", zap.Error(err), zap.String("note_id", noteID))
		} else {
			note.AccessCount++
			note.LastAccessedAt = &now
		}
		result = note
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update applies a content patch (title, body, category, tags).
func (s *NoteService) Update(ctx context.Context, noteID string, req dto.UpdateNoteRequest, actor *models.JWTClaims) (*models.Note, error) {
	return s.mutate(ctx, noteID, models.ActionModify, req.Reason, actor, func(note *models.Note) error {
		if req.Title != nil {
			note.Title = req.Title
		}
		if req.Body != nil {
			note.Body = *req.Body
		}
		if req.Category != nil {
			note.Category = strings.TrimSpace(*req.Category)
		}
		if req.Tags != nil {
			normalized := req.Tags
			if s.tags != nil {
				normalized = s.tags.Normalize(req.Tags)
			}
			added, removed := diffTags(note.Tags, normalized)
			note.Tags = normalized
			s.trackTags(ctx, added, removed)
		}
		return nil
	})
}

// AddTags appends normalized tags not already on the note.
func (s *NoteService) AddTags(ctx context.Context, noteID string, tags []string, reason string, actor *models.JWTClaims) (*models.Note, error) {
	normalized := tags
	if s.tags != nil {
		normalized = s.tags.Normalize(tags)
	}
	return s.mutate(ctx, noteID, models.ActionModify, reason, actor, func(note *models.Note) error {
		var added []string
		for _, tag := range normalized {
			if !containsTag(note.Tags, tag) {
				note.Tags = append(note.Tags, tag)
				added = append(added, tag)
			}
		}
		s.trackTags(ctx, added, nil)
		return nil
	})
}

// RemoveTags drops the given tags from the note; absent tags are ignored.
func (s *NoteService) RemoveTags(ctx context.Context, noteID string, tags []string, reason string, actor *models.JWTClaims) (*models.Note, error) {
	normalized := tags
	if s.tags != nil {
		normalized = s.tags.Normalize(tags)
	}
	return s.mutate(ctx, noteID, models.ActionModify, reason, actor, func(note *models.Note) error {
		var removed []string
		kept := note.Tags[:0]
		for _, tag := range note.Tags {
			if containsTag(normalized, tag) {
				removed = append(removed, tag)
				continue
			}
			kept = append(kept, tag)
		}
		note.Tags = kept
		s.trackTags(ctx, nil, removed)
		return nil
	})
}

// Delete hard-removes a note after an allow decision.
func (s *NoteService) Delete(ctx context.Context, noteID, reason string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	act := actorFromClaims(actor)
	act.Reason = reason

	return s.locks.WithLock(noteID, func() error {
		note, err := s.load(ctx, noteID)
		if err != nil {
			return err
		}
		decision := s.access.Evaluate(ctx, act, note, models.ActionDelete)
		if !decision.Allowed {
			s.record(ctx, act, noteID, models.ActionDelete, decision, nil, nil)
			return appErrors.Denied(decision.Reason)
		}
		if err := s.repo.Delete(ctx, noteID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrNotFound
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
		}
		s.trackTags(ctx, nil, note.Tags)
		s.record(ctx, act, noteID, models.ActionDelete, decision, snapshot(note), nil)
		return nil
	})
}

// Share adds users to the note's share list.
func (s *NoteService) Share(ctx context.Context, noteID string, req dto.ShareRequest, actor *models.JWTClaims) (*models.Note, error) {
	return s.mutate(ctx, noteID, models.ActionShare, req.Reason, actor, func(note *models.Note) error {
		for _, userID := range req.UserIDs {
			if userID == "" || note.SharedWithContains(userID) {
				continue
			}
			note.SharedWith = append(note.SharedWith, userID)
		}
		return nil
	})
}

// Unshare removes users from the note's share list.
func (s *NoteService) Unshare(ctx context.Context, noteID string, req dto.ShareRequest, actor *models.JWTClaims) (*models.Note, error) {
	return s.mutate(ctx, noteID, models.ActionUnshare, req.Reason, actor, func(note *models.Note) error {
		remove := make(map[string]struct{}, len(req.UserIDs))
		for _, userID := range req.UserIDs {
			remove[userID] = struct{}{}
		}
		kept := note.SharedWith[:0]
		for _, userID := range note.SharedWith {
			if _, drop := remove[userID]; !drop {
				kept = append(kept, userID)
			}
		}
		note.SharedWith = kept
		return nil
	})
}

// ChangePrivacy updates the access tier and privacy switches. Disabling
// sharing clears the share list to keep the invariant.
func (s *NoteService) ChangePrivacy(ctx context.Context, noteID string, req dto.PrivacyChangeRequest, actor *models.JWTClaims) (*models.Note, error) {
	if req.AccessLevel != nil && !models.ValidAccessLevel(*req.AccessLevel) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported access level")
	}
	return s.mutate(ctx, noteID, models.ActionPrivacyChange, req.Reason, actor, func(note *models.Note) error {
		if req.AccessLevel != nil {
			note.AccessLevel = *req.AccessLevel
		}
		if req.Privacy != nil {
			applyPrivacy(note, *req.Privacy)
		}
		if !note.AllowSharing {
			note.SharedWith = nil
		}
		return nil
	})
}

// Archive soft-archives a note.
func (s *NoteService) Archive(ctx context.Context, noteID string, req dto.ArchiveRequest, actor *models.JWTClaims) (*models.Note, error) {
	return s.mutate(ctx, noteID, models.ActionArchive, req.Reason, actor, func(note *models.Note) error {
		note.IsArchived = true
		reason := strings.TrimSpace(req.ArchiveReason)
		if reason == "" {
			reason = "archived_by_user"
		}
		note.ArchiveReason = &reason
		return nil
	})
}

// Restore clears the archived state.
func (s *NoteService) Restore(ctx context.Context, noteID, reason string, actor *models.JWTClaims) (*models.Note, error) {
	return s.mutate(ctx, noteID, models.ActionRestore, reason, actor, func(note *models.Note) error {
		note.IsArchived = false
		note.ArchiveReason = nil
		return nil
	})
}

// AssignCategory re-categorises a note.
func (s *NoteService) AssignCategory(ctx context.Context, noteID string, req dto.CategoryAssignRequest, actor *models.JWTClaims) (*models.Note, error) {
	if strings.TrimSpace(req.Category) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category is required")
	}
	return s.mutate(ctx, noteID, models.ActionCategoryAssign, req.Reason, actor, func(note *models.Note) error {
		note.Category = strings.TrimSpace(req.Category)
		return nil
	})
}

// ArchiveSystem flags a note from a retention pass, bypassing access
// control but not the lock or the audit trail.
func (s *NoteService) ArchiveSystem(ctx context.Context, noteID, archiveReason string) error {
	act := Actor{ID: SystemActorID, Role: models.RoleAdmin}
	return s.locks.WithLock(noteID, func() error {
		note, err := s.load(ctx, noteID)
		if err != nil {
			return err
		}
		before := snapshot(note)
		note.IsArchived = true
		note.ArchiveReason = &archiveReason
		if err := s.update(ctx, note); err != nil {
			return err
		}
		s.record(ctx, act, noteID, models.ActionArchive, models.Allow(), before, snapshot(note))
		return nil
	})
}

// DeleteSystem hard-deletes a note from a retention pass or an erasure
// fulfilment. withAudit is false when the caller records one aggregate
// entry instead of per-note entries.
func (s *NoteService) DeleteSystem(ctx context.Context, noteID string, withAudit bool) error {
	act := Actor{ID: SystemActorID, Role: models.RoleAdmin}
	return s.locks.WithLock(noteID, func() error {
		note, err := s.load(ctx, noteID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, noteID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrNotFound
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
		}
		s.trackTags(ctx, nil, note.Tags)
		if withAudit {
			s.record(ctx, act, noteID, models.ActionDelete, models.Allow(), snapshot(note), nil)
		}
		return nil
	})
}

// ListBySubject exposes the erasure surface for data subject requests.
func (s *NoteService) ListBySubject(ctx context.Context, subjectID string) ([]models.Note, error) {
	notes, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject notes")
	}
	return notes, nil
}

// mutate runs the lock → load → evaluate → apply → persist → audit pipeline
// shared by all single-note mutations.
func (s *NoteService) mutate(ctx context.Context, noteID string, action models.Action, reason string, actor *models.JWTClaims, apply func(*models.Note) error) (*models.Note, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	act := actorFromClaims(actor)
	act.Reason = reason

	var result *models.Note
	err := s.locks.WithLock(noteID, func() error {
		note, err := s.load(ctx, noteID)
		if err != nil {
			return err
		}
		decision := s.access.Evaluate(ctx, act, note, action)
		if !decision.Allowed {
			s.record(ctx, act, noteID, action, decision, nil, nil)
			return appErrors.Denied(decision.Reason)
		}
		before := snapshot(note)
		if err := apply(note); err != nil {
			return err
		}
		if err := s.update(ctx, note); err != nil {
			return err
		}
		s.record(ctx, act, noteID, action, decision, before, snapshot(note))
		result = note
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *NoteService) load(ctx context.Context, noteID string) (*models.Note, error) {
	note, err := s.repo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	return note, nil
}

func (s *NoteService) update(ctx context.Context, note *models.Note) error {
	if err := s.repo.Update(ctx, note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrConcurrencyConflict
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}
	return nil
}

// record appends one audit entry; audit failures are logged, never
// propagated, so a flaky ledger cannot mask a committed mutation.
func (s *NoteService) record(ctx context.Context, act Actor, noteID string, action models.Action, decision models.Decision, oldValues, newValues []byte) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditEntry{
		NoteID:    noteID,
		ActorID:   act.ID,
		ActorRole: act.Role,
		Action:    action,
		Success:   decision.Allowed,
		OldValues: oldValues,
		NewValues: newValues,
	}
	if !decision.Allowed {
		reason := decision.Reason
		entry.DenialReason = &reason
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit entry", zap.Error(err), zap.String("note_id", noteID), zap.String("action", string(action)))
	}
}

func (s *NoteService) trackTags(ctx context.Context, added, removed []string) {
	if s.tags == nil || (len(added) == 0 && len(removed) == 0) {
		return
	}
	if err := s.tags.Track(ctx, added, removed); err != nil {
		s.logger.Warn("failed to adjust tag usage", zap.Error(err))
	}
}

func actorFromClaims(claims *models.JWTClaims) Actor {
	return Actor{ID: claims.UserID, Role: claims.Role}
}

func applyPrivacy(note *models.Note, privacy models.PrivacySettings) {
	note.AllowExport = privacy.AllowExport
	note.AllowSharing = privacy.AllowSharing
	note.RequireReason = privacy.RequireReason
	note.SensitiveContent = privacy.SensitiveContent
	note.SupervisionRequired = privacy.SupervisionRequired
	note.AutoDeleteAfterDays = privacy.AutoDeleteAfterDays
	note.RetentionPeriodDays = privacy.RetentionPeriodDays
}

// snapshot captures the audit-facing view of a note as an opaque JSON diff
// payload. Stored values are immutable once written.
func snapshot(note *models.Note) []byte {
	payload, err := json.Marshal(map[string]interface{}{
		"title":        note.Title,
		"category":     note.Category,
		"tags":         []string(note.Tags),
		"access_level": note.AccessLevel,
		"privacy":      note.Privacy(),
		"shared_with":  []string(note.SharedWith),
		"is_archived":  note.IsArchived,
	})
	if err != nil {
		return []byte("{}")
	}
	return payload
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func diffTags(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]struct{}, len(before))
	for _, tag := range before {
		beforeSet[tag] = struct{}{}
	}
	afterSet := make(map[string]struct{}, len(after))
	for _, tag := range after {
		afterSet[tag] = struct{}{}
		if _, ok := beforeSet[tag]; !ok {
			added = append(added, tag)
		}
	}
	for _, tag := range before {
		if _, ok := afterSet[tag]; !ok {
			removed = append(removed, tag)
		}
	}
	return added, removed
}
