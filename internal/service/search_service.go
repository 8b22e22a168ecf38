package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

// Term weights for relevance scoring.
const (
	scoreTitleHit = 10
	scoreBodyHit  = 5
	scoreTagHit   = 3
)

// SearchService runs structurally filtered, access-checked, scored note
// search. Visibility filtering reuses the view decision of the evaluator;
// notes the actor cannot see are silently dropped, never audited.
type SearchService struct {
	repo            noteStore
	access          accessEvaluator
	logger          *zap.Logger
	defaultPageSize int
	maxPageSize     int
}

// NewSearchService constructs the service.
func NewSearchService(repo noteStore, access accessEvaluator, defaultPageSize, maxPageSize int, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &SearchService{
		repo:            repo,
		access:          access,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// Search executes the query for the acting user.
func (s *SearchService) Search(ctx context.Context, req dto.SearchRequest, actor *models.JWTClaims) (*dto.SearchResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	sortField, sortOrder, err := normalizeSort(req)
	if err != nil {
		return nil, err
	}

	filter := models.NoteFilter{
		ClientID:        req.ClientID,
		SessionID:       req.SessionID,
		Category:        strings.TrimSpace(req.Category),
		Tags:            req.Tags,
		CreatedFrom:     req.DateFrom,
		CreatedTo:       req.DateTo,
		IncludeArchived: req.IncludeArchived,
	}
	candidates, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list search candidates")
	}

	act := actorFromClaims(actor)
	act.Reason = req.Reason
	terms := splitTerms(req.Text)

	results := make([]dto.SearchResult, 0, len(candidates))
	for i := range candidates {
		note := candidates[i]
		decision := s.access.Evaluate(ctx, act, &note, models.ActionView)
		if !decision.Allowed {
			continue
		}
		score := 0
		if len(terms) > 0 {
			score = scoreNote(&note, terms)
			if score == 0 {
				continue
			}
		}
		results = append(results, dto.SearchResult{Note: note, Score: score})
	}

	sortResults(results, sortField, sortOrder)

	total := len(results)
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &dto.SearchResponse{
		Results:    results[start:end],
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func normalizeSort(req dto.SearchRequest) (field, order string, err error) {
	field = req.SortField
	if field == "" {
		if strings.TrimSpace(req.Text) != "" {
			field = dto.SortRelevance
		} else {
			field = dto.SortCreatedAt
		}
	}
	switch field {
	case dto.SortRelevance:
		if strings.TrimSpace(req.Text) == "" {
			return "", "", appErrors.Clone(appErrors.ErrInvalidSort, "relevance sort requires a text query")
		}
	case dto.SortCreatedAt, dto.SortUpdatedAt, dto.SortTitle:
	default:
		return "", "", appErrors.Clone(appErrors.ErrInvalidSort, "unsupported sort field")
	}
	order = strings.ToLower(req.SortOrder)
	switch order {
	case "":
		if field == dto.SortTitle {
			order = "asc"
		} else {
			order = "desc"
		}
	case "asc", "desc":
	default:
		return "", "", appErrors.Clone(appErrors.ErrInvalidSort, "unsupported sort order")
	}
	return field, order, nil
}

func splitTerms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

// scoreNote sums per-term weights: a term found in the title counts 10,
// in the body 5, in any tag 3. Matching is case-insensitive substring.
func scoreNote(note *models.Note, terms []string) int {
	title := ""
	if note.Title != nil {
		title = strings.ToLower(*note.Title)
	}
	body := strings.ToLower(note.Body)
	tags := make([]string, len(note.Tags))
	for i, tag := range note.Tags {
		tags[i] = strings.ToLower(tag)
	}

	total := 0
	for _, term := range terms {
		if title != "" && strings.Contains(title, term) {
			total += scoreTitleHit
		}
		if strings.Contains(body, term) {
			total += scoreBodyHit
		}
		for _, tag := range tags {
			if strings.Contains(tag, term) {
				total += scoreTagHit
				break
			}
		}
	}
	return total
}

func sortResults(results []dto.SearchResult, field, order string) {
	asc := order == "asc"
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch field {
		case dto.SortRelevance:
			// Highest score first regardless of order; most recently
			// updated breaks ties.
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return a.Note.UpdatedAt.After(b.Note.UpdatedAt)
		case dto.SortUpdatedAt:
			if asc {
				return a.Note.UpdatedAt.Before(b.Note.UpdatedAt)
			}
			return a.Note.UpdatedAt.After(b.Note.UpdatedAt)
		case dto.SortTitle:
			if asc {
				return titleOf(a.Note) < titleOf(b.Note)
			}
			return titleOf(a.Note) > titleOf(b.Note)
		default:
			if asc {
				return a.Note.CreatedAt.Before(b.Note.CreatedAt)
			}
			return a.Note.CreatedAt.After(b.Note.CreatedAt)
		}
	})
}

func titleOf(note models.Note) string {
	if note.Title == nil {
		return ""
	}
	return strings.ToLower(*note.Title)
}
