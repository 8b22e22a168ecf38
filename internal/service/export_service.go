package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/export"
)

// Skip reason for notes whose client withdrew export consent.
const skipConsentNotGranted = "consent_not_granted"

type exportNoteService interface {
	ExportView(ctx context.Context, noteID, reason string, actor *models.JWTClaims) (*models.Note, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

// ExportConfig bounds the exporter.
type ExportConfig struct {
	MaxNotes  int
	BundleTTL time.Duration
}

// ExportService renders permitted notes into a downloadable bundle.
// Denied or missing notes never abort the export; they land on the
// skipped list with the denial reason, and each included note leaves an
// export audit entry via the note service.
type ExportService struct {
	notes   exportNoteService
	consent consentChecker
	storage exportStorage
	signer  urlSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	metrics *MetricsService
	cfg     ExportConfig
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(notes exportNoteService, consent consentChecker, storage exportStorage, signer urlSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxNotes <= 0 {
		cfg.MaxNotes = 500
	}
	return &ExportService{
		notes:   notes,
		consent: consent,
		storage: storage,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
	}
}

// ExportNotes gathers the permitted subset of the requested notes and
// renders them in the requested format.
func (s *ExportService) ExportNotes(ctx context.Context, req dto.ExportNotesRequest, actor *models.JWTClaims) (*dto.ExportNotesResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	format := strings.ToLower(req.Format)
	switch format {
	case dto.ExportFormatJSON, dto.ExportFormatCSV, dto.ExportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	targets := dedupe(req.NoteIDs)
	if len(targets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one note id is required")
	}
	if len(targets) > s.cfg.MaxNotes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("too many notes: limit is %d", s.cfg.MaxNotes))
	}

	included := make([]*models.Note, 0, len(targets))
	skipped := make([]dto.SkippedNote, 0)
	for _, noteID := range targets {
		note, err := s.notes.ExportView(ctx, noteID, req.Reason, actor)
		if err != nil {
			skipped = append(skipped, dto.SkippedNote{NoteID: noteID, Reason: skipReason(err)})
			continue
		}
		if s.consentWithdrawn(ctx, note.ClientID) {
			skipped = append(skipped, dto.SkippedNote{NoteID: noteID, Reason: skipConsentNotGranted})
			continue
		}
		included = append(included, note)
	}

	payload, err := s.render(included, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	jobID := uuid.NewString()
	filename := fmt.Sprintf("%s/notes-export.%s", jobID, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, _, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	if s.metrics != nil {
		s.metrics.RecordExport(len(included), len(skipped))
	}
	return &dto.ExportNotesResponse{
		DownloadURL: "/api/v1/exports/download?token=" + token,
		Format:      format,
		Exported:    len(included),
		Skipped:     skipped,
	}, nil
}

// OpenDownload validates a signed token and returns the stored bundle.
func (s *ExportService) OpenDownload(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export no longer available")
	}
	return file, nil
}

// CleanupExpired removes stored bundles older than the configured TTL.
// Download tokens outlive their bundle at most until the next sweep.
func (s *ExportService) CleanupExpired() (int, error) {
	if s.cfg.BundleTTL <= 0 {
		return 0, nil
	}
	removed, err := s.storage.CleanupOlderThan(s.cfg.BundleTTL)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clean up export bundles")
	}
	if len(removed) > 0 {
		s.logger.Info("expired export bundles removed", zap.Int("count", len(removed)))
	}
	return len(removed), nil
}

// RunCleanup ticks CleanupExpired at the given interval until the context ends.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupExpired(); err != nil {
				s.logger.Error("export bundle cleanup failed", zap.Error(err))
			}
		}
	}
}

// consentWithdrawn reports an explicit export-consent denial for a client.
// An unknown status does not block: pre-consent-era notes stay exportable.
func (s *ExportService) consentWithdrawn(ctx context.Context, clientID string) bool {
	if s.consent == nil || clientID == "" {
		return false
	}
	status, err := s.consent.CurrentStatus(ctx, clientID, models.ConsentExport)
	if err != nil {
		s.logger.Warn("export consent lookup failed", zap.Error(err), zap.String("client_id", clientID))
		return false
	}
	return status == models.ConsentStatusDenied
}

func (s *ExportService) render(notes []*models.Note, format string) ([]byte, error) {
	switch format {
	case dto.ExportFormatJSON:
		return json.MarshalIndent(notes, "", "  ")
	case dto.ExportFormatCSV:
		return s.csv.Render(noteDataset(notes))
	case dto.ExportFormatPDF:
		return s.pdf.Render(noteDataset(notes), "Coaching Notes Export")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func noteDataset(notes []*models.Note) export.Dataset {
	headers := []string{"id", "owner_id", "client_id", "session_id", "title", "category", "tags", "access_level", "created_at"}
	rows := make([]map[string]string, 0, len(notes))
	for _, note := range notes {
		title := ""
		if note.Title != nil {
			title = *note.Title
		}
		rows = append(rows, map[string]string{
			"id":           note.ID,
			"owner_id":     note.OwnerID,
			"client_id":    note.ClientID,
			"session_id":   note.SessionID,
			"title":        title,
			"category":     note.Category,
			"tags":         strings.Join(note.Tags, ";"),
			"access_level": string(note.AccessLevel),
			"created_at":   note.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// skipReason maps an export-view failure onto a skip list code.
func skipReason(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case appErrors.ErrNotFound.Code:
			return models.DenialNotFound
		case appErrors.ErrAccessDenied.Code:
			return appErr.Message
		}
	}
	return "error"
}
