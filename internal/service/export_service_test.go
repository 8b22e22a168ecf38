package service

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type exportNotesStub struct {
	notes  map[string]*models.Note
	errOn  map[string]error
	viewed []string
}

func (s *exportNotesStub) ExportView(ctx context.Context, noteID, reason string, actor *models.JWTClaims) (*models.Note, error) {
	if err, ok := s.errOn[noteID]; ok {
		return nil, err
	}
	note, ok := s.notes[noteID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	s.viewed = append(s.viewed, noteID)
	return note, nil
}

type exportStorageStub struct {
	saved      map[string][]byte
	cleanedTTL time.Duration
	expired    []string
}

func newExportStorageStub() *exportStorageStub {
	return &exportStorageStub{saved: make(map[string][]byte)}
}

func (s *exportStorageStub) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	s.cleanedTTL = ttl
	for _, name := range s.expired {
		delete(s.saved, name)
	}
	return s.expired, nil
}

func (s *exportStorageStub) Save(filename string, data []byte) (string, error) {
	s.saved[filename] = data
	return filename, nil
}

func (s *exportStorageStub) Open(filename string) (*os.File, error) {
	if _, ok := s.saved[filename]; !ok {
		return nil, os.ErrNotExist
	}
	return nil, nil
}

type signerStub struct{}

func (signerStub) Generate(jobID, relPath string) (string, time.Time, error) {
	return "tok-" + jobID, time.Now().Add(time.Hour), nil
}

func (signerStub) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	return "", "", time.Time{}, os.ErrInvalid
}

func exportableNote(id, clientID string) *models.Note {
	title := "Session " + id
	return &models.Note{
		ID:          id,
		OwnerID:     "coach-1",
		ClientID:    clientID,
		SessionID:   "session-" + id,
		Title:       &title,
		Body:        "body",
		AccessLevel: models.AccessLevelPrivate,
		AllowExport: true,
		Tags:        []string{"goals", "follow-up"},
		CreatedAt:   time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newExportTestService(notes *exportNotesStub, consentStatus models.ConsentStatus, storage *exportStorageStub) *ExportService {
	return NewExportService(notes, &consentStub{status: consentStatus}, storage, signerStub{}, nil, ExportConfig{MaxNotes: 5}, nil)
}

func TestExportNotesJSON(t *testing.T) {
	notes := &exportNotesStub{notes: map[string]*models.Note{
		"n1": exportableNote("n1", "client-1"),
		"n2": exportableNote("n2", "client-1"),
	}}
	storage := newExportStorageStub()
	svc := newExportTestService(notes, models.ConsentStatusGranted, storage)

	resp, err := svc.ExportNotes(context.Background(), dto.ExportNotesRequest{
		NoteIDs: []string{"n1", "n2", "n1"},
		Format:  "JSON",
	}, coachClaims("coach-1"))
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Exported)
	assert.Empty(t, resp.Skipped)
	assert.Equal(t, "json", resp.Format)
	assert.True(t, strings.HasPrefix(resp.DownloadURL, "/api/v1/exports/download?token="))

	require.Len(t, storage.saved, 1)
	for name, payload := range storage.saved {
		assert.True(t, strings.HasSuffix(name, "/notes-export.json"))
		var decoded []models.Note
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Len(t, decoded, 2)
	}
}

func TestExportSkipsDeniedAndMissingNotes(t *testing.T) {
	notes := &exportNotesStub{
		notes: map[string]*models.Note{"visible": exportableNote("visible", "client-1")},
		errOn: map[string]error{
			"locked": appErrors.Denied(models.DenialExportDisabled),
		},
	}
	svc := newExportTestService(notes, models.ConsentStatusGranted, newExportStorageStub())

	resp, err := svc.ExportNotes(context.Background(), dto.ExportNotesRequest{
		NoteIDs: []string{"visible", "locked", "ghost"},
		Format:  dto.ExportFormatJSON,
	}, coachClaims("coach-1"))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Exported)
	require.Len(t, resp.Skipped, 2)
	reasons := make(map[string]string, 2)
	for _, skip := range resp.Skipped {
		reasons[skip.NoteID] = skip.Reason
	}
	assert.Equal(t, models.DenialExportDisabled, reasons["locked"])
	assert.Equal(t, models.DenialNotFound, reasons["ghost"])
}

func TestExportSkipsWithdrawnConsent(t *testing.T) {
	notes := &exportNotesStub{notes: map[string]*models.Note{
		"n1": exportableNote("n1", "client-1"),
	}}
	svc := newExportTestService(notes, models.ConsentStatusDenied, newExportStorageStub())

	resp, err := svc.ExportNotes(context.Background(), dto.ExportNotesRequest{
		NoteIDs: []string{"n1"},
		Format:  dto.ExportFormatJSON,
	}, coachClaims("coach-1"))
	require.NoError(t, err)

	assert.Zero(t, resp.Exported)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, skipConsentNotGranted, resp.Skipped[0].Reason)
}

func TestExportUnknownConsentStillExports(t *testing.T) {
	notes := &exportNotesStub{notes: map[string]*models.Note{
		"n1": exportableNote("n1", "client-1"),
	}}
	svc := newExportTestService(notes, models.ConsentStatusUnknown, newExportStorageStub())

	resp, err := svc.ExportNotes(context.Background(), dto.ExportNotesRequest{
		NoteIDs: []string{"n1"},
		Format:  dto.ExportFormatJSON,
	}, coachClaims("coach-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Exported)
}

func TestExportCSVContainsNoteFields(t *testing.T) {
	notes := &exportNotesStub{notes: map[string]*models.Note{
		"n1": exportableNote("n1", "client-1"),
	}}
	storage := newExportStorageStub()
	svc := newExportTestService(notes, models.ConsentStatusGranted, storage)

	_, err := svc.ExportNotes(context.Background(), dto.ExportNotesRequest{
		NoteIDs: []string{"n1"},
		Format:  dto.ExportFormatCSV,
	}, coachClaims("coach-1"))
	require.NoError(t, err)

	require.Len(t, storage.saved, 1)
	for _, payload := range storage.saved {
		body := string(payload)
		assert.Contains(t, body, "id")
		assert.Contains(t, body, "n1")
		assert.Contains(t, body, "goals;follow-up")
	}
}

func TestExportCleanupExpired(t *testing.T) {
	storage := newExportStorageStub()
	storage.saved["old/notes-export.json"] = []byte("{}")
	storage.expired = []string{"old/notes-export.json"}
	svc := NewExportService(&exportNotesStub{}, nil, storage, signerStub{}, nil, ExportConfig{
		MaxNotes:  5,
		BundleTTL: 24 * time.Hour,
	}, nil)

	removed, err := svc.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 24*time.Hour, storage.cleanedTTL)
	assert.Empty(t, storage.saved)
}

func TestExportCleanupDisabledWithoutTTL(t *testing.T) {
	storage := newExportStorageStub()
	storage.expired = []string{"old/notes-export.json"}
	svc := NewExportService(&exportNotesStub{}, nil, storage, signerStub{}, nil, ExportConfig{MaxNotes: 5}, nil)

	removed, err := svc.CleanupExpired()
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Zero(t, storage.cleanedTTL)
}

func TestExportValidation(t *testing.T) {
	svc := newExportTestService(&exportNotesStub{}, models.ConsentStatusGranted, newExportStorageStub())
	actor := coachClaims("coach-1")

	_, err := svc.ExportNotes(context.Background(), dto.ExportNotesRequest{NoteIDs: []string{"n1"}, Format: "xml"}, actor)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.ExportNotes(context.Background(), dto.ExportNotesRequest{NoteIDs: []string{""}, Format: "json"}, actor)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.ExportNotes(context.Background(), dto.ExportNotesRequest{
		NoteIDs: []string{"a", "b", "c", "d", "e", "f"}, Format: "json",
	}, actor)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
