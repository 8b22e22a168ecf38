package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type tagStore interface {
	SeedPredefined(ctx context.Context, names []string) error
	Ensure(ctx context.Context, name string) error
	AdjustUsage(ctx context.Context, name string, delta int64) error
	List(ctx context.Context) ([]models.TagRecord, error)
}

const tagVocabularyCacheKey = "tags:vocabulary"

// TagService maintains the tag vocabulary and per-tag usage counts. Tags
// are normalized to lower-kebab-case before they touch storage, so the
// index never holds two spellings of the same tag.
type TagService struct {
	repo     tagStore
	cache    reportCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewTagService constructs the service.
func NewTagService(repo tagStore, cache reportCache, cacheTTL time.Duration, logger *zap.Logger) *TagService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TagService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Seed upserts the predefined taxonomy. Called once at startup.
func (s *TagService) Seed(ctx context.Context) error {
	if err := s.repo.SeedPredefined(ctx, models.PredefinedTags); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed predefined tags")
	}
	return nil
}

// Normalize lower-kebab-cases the tags and drops empties and duplicates,
// preserving first-seen order.
func (s *TagService) Normalize(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// Track registers added tags in the vocabulary and adjusts usage counts in
// both directions. Counts never go below zero.
func (s *TagService) Track(ctx context.Context, added, removed []string) error {
	for _, tag := range added {
		if err := s.repo.Ensure(ctx, tag); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register tag")
		}
		if err := s.repo.AdjustUsage(ctx, tag, 1); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bump tag usage")
		}
	}
	for _, tag := range removed {
		if err := s.repo.AdjustUsage(ctx, tag, -1); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop tag usage")
		}
	}
	if len(added) > 0 || len(removed) > 0 {
		s.invalidate(ctx)
	}
	return nil
}

// Vocabulary returns all known tags ordered by usage, cached briefly.
func (s *TagService) Vocabulary(ctx context.Context) ([]models.TagRecord, error) {
	if s.cache != nil {
		var cached []models.TagRecord
		if err := s.cache.Get(ctx, tagVocabularyCacheKey, &cached); err == nil {
			return cached, nil
		}
	}
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tags")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, tagVocabularyCacheKey, records, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache tag vocabulary", zap.Error(err))
		}
	}
	return records, nil
}

func (s *TagService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	// Overwrite with a zero TTL entry is not possible through the cache
	// interface; a short-lived stale vocabulary is acceptable, but refresh
	// eagerly when we can.
	records, err := s.repo.List(ctx)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, tagVocabularyCacheKey, records, s.cacheTTL); err != nil {
		s.logger.Warn("failed to refresh tag vocabulary cache", zap.Error(err))
	}
}

// NormalizeTag lower-kebab-cases one tag: letters and digits are kept,
// every other run of characters collapses to a single hyphen.
func NormalizeTag(tag string) string {
	var b strings.Builder
	b.Grow(len(tag))
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(tag)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
