package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

// ArchiveReasonRetention marks notes archived by a retention pass.
const ArchiveReasonRetention = "retention_expired"

type retentionNoteService interface {
	ArchiveSystem(ctx context.Context, noteID, archiveReason string) error
	DeleteSystem(ctx context.Context, noteID string, withAudit bool) error
}

// RetentionReport is the outcome of one retention pass.
type RetentionReport struct {
	Scanned int `json:"scanned"`
	Flagged int `json:"flagged"`
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// RetentionService sweeps notes whose retention or auto-delete windows
// elapsed. When both thresholds trip in the same pass, deletion wins.
type RetentionService struct {
	repo    noteStore
	notes   retentionNoteService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRetentionService constructs the service.
func NewRetentionService(repo noteStore, notes retentionNoteService, metrics *MetricsService, logger *zap.Logger) *RetentionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionService{repo: repo, notes: notes, metrics: metrics, logger: logger}
}

// RunPass evaluates every candidate against now. Per-note failures are
// counted and logged; the pass always runs to completion.
func (s *RetentionService) RunPass(ctx context.Context, now time.Time) (*RetentionReport, error) {
	candidates, err := s.repo.ListRetentionCandidates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list retention candidates")
	}

	report := &RetentionReport{Scanned: len(candidates)}
	for i := range candidates {
		note := &candidates[i]
		switch {
		case expired(note.AutoDeleteAfterDays, note.CreatedAt, now):
			if err := s.notes.DeleteSystem(ctx, note.ID, true); err != nil {
				if errors.Is(err, appErrors.ErrNotFound) {
					continue
				}
				report.Errors++
				s.logger.Error("retention delete failed", zap.Error(err), zap.String("note_id", note.ID))
				continue
			}
			report.Deleted++
		case !note.IsArchived && expired(note.RetentionPeriodDays, note.CreatedAt, now):
			if err := s.notes.ArchiveSystem(ctx, note.ID, ArchiveReasonRetention); err != nil {
				if errors.Is(err, appErrors.ErrNotFound) {
					continue
				}
				report.Errors++
				s.logger.Error("retention flag failed", zap.Error(err), zap.String("note_id", note.ID))
				continue
			}
			report.Flagged++
		}
	}

	if s.metrics != nil {
		s.metrics.RecordRetention(report.Flagged, report.Deleted)
	}
	s.logger.Info("retention pass finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("flagged", report.Flagged),
		zap.Int("deleted", report.Deleted),
		zap.Int("errors", report.Errors))
	return report, nil
}

// Run ticks RunPass at the given interval until the context ends.
func (s *RetentionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunPass(ctx, time.Now().UTC()); err != nil {
				s.logger.Error("retention pass failed", zap.Error(err))
			}
		}
	}
}

func expired(days *int, since time.Time, now time.Time) bool {
	if days == nil || *days <= 0 {
		return false
	}
	return now.Sub(since) >= time.Duration(*days)*24*time.Hour
}
