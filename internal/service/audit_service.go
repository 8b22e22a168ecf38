package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

// auditLogger is the append-only sink the other services write through.
type auditLogger interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
}

type auditStore interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error)
}

// AuditService guards the audit ledger: appends are validated, queries are
// role-restricted, and no mutation of existing entries exists anywhere in
// the public contract.
type AuditService struct {
	repo    auditStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(repo auditStore, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, metrics: metrics, logger: logger}
}

// Record appends one entry. Denials must carry a non-empty reason.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditEntry) error {
	if entry == nil {
		return appErrors.Clone(appErrors.ErrValidation, "audit entry is required")
	}
	if !entry.Success {
		if entry.DenialReason == nil || strings.TrimSpace(*entry.DenialReason) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "denial entries require a reason")
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append audit entry")
	}
	if s.metrics != nil {
		s.metrics.RecordAuditAppend()
	}
	return nil
}

// Query returns matching entries newest-first. Admins see everything;
// everyone else sees only entries about their own activity.
func (s *AuditService) Query(ctx context.Context, filter models.AuditFilter, actor *models.JWTClaims) ([]models.AuditEntry, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		filter.ActorID = actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	entries, total, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query audit trail")
	}
	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
		TotalPages: (total + filter.PageSize - 1) / filter.PageSize,
	}
	return entries, pagination, nil
}
