package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type savedSearchStore interface {
	Create(ctx context.Context, search *models.SavedSearch) error
	GetByID(ctx context.Context, id string) (*models.SavedSearch, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.SavedSearch, error)
	Update(ctx context.Context, search *models.SavedSearch) error
	Delete(ctx context.Context, id string) error
}

type searchRunner interface {
	Search(ctx context.Context, req dto.SearchRequest, actor *models.JWTClaims) (*dto.SearchResponse, error)
}

// SavedSearchService stores named, versioned search definitions per user
// and replays them through the live search pipeline, so a saved query is
// always re-filtered against current access decisions.
type SavedSearchService struct {
	repo   savedSearchStore
	search searchRunner
	logger *zap.Logger
}

// NewSavedSearchService constructs the service.
func NewSavedSearchService(repo savedSearchStore, search searchRunner, logger *zap.Logger) *SavedSearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SavedSearchService{repo: repo, search: search, logger: logger}
}

// Create persists a named search for the caller.
func (s *SavedSearchService) Create(ctx context.Context, req dto.CreateSavedSearchRequest, actor *models.JWTClaims) (*models.SavedSearch, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if err := validateSearchQuery(req.Query); err != nil {
		return nil, err
	}

	search := &models.SavedSearch{
		OwnerID: actor.UserID,
		Name:    strings.TrimSpace(req.Name),
		Query:   req.Query,
	}
	if err := s.repo.Create(ctx, search); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create saved search")
	}
	return search, nil
}

// Get returns one saved search; only the owner may read it.
func (s *SavedSearchService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SavedSearch, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	search, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if search.OwnerID != actor.UserID {
		return nil, appErrors.ErrNotFound
	}
	return search, nil
}

// List returns the caller's saved searches.
func (s *SavedSearchService) List(ctx context.Context, actor *models.JWTClaims) ([]models.SavedSearch, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	searches, err := s.repo.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list saved searches")
	}
	return searches, nil
}

// Update replaces the name or query, bumping the version optimistically.
func (s *SavedSearchService) Update(ctx context.Context, id string, req dto.UpdateSavedSearchRequest, actor *models.JWTClaims) (*models.SavedSearch, error) {
	search, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		search.Name = strings.TrimSpace(req.Name)
	}
	if len(req.Query) > 0 {
		if err := validateSearchQuery(req.Query); err != nil {
			return nil, err
		}
		search.Query = req.Query
	}
	if err := s.repo.Update(ctx, search); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrConcurrencyConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update saved search")
	}
	return search, nil
}

// Delete removes a saved search owned by the caller.
func (s *SavedSearchService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete saved search")
	}
	return nil
}

// Run replays the stored query through the live search pipeline.
func (s *SavedSearchService) Run(ctx context.Context, id string, page, pageSize int, actor *models.JWTClaims) (*dto.SearchResponse, error) {
	search, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	var req dto.SearchRequest
	if err := json.Unmarshal(search.Query, &req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt saved search query")
	}
	if page > 0 {
		req.Page = page
	}
	if pageSize > 0 {
		req.PageSize = pageSize
	}
	return s.search.Search(ctx, req, actor)
}

func (s *SavedSearchService) load(ctx context.Context, id string) (*models.SavedSearch, error) {
	search, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load saved search")
	}
	return search, nil
}

func validateSearchQuery(raw json.RawMessage) error {
	var req dto.SearchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "query must be a valid search request")
	}
	return nil
}
