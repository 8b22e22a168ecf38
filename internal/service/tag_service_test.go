package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

type tagRepoStub struct {
	usage  map[string]int64
	seeded []string
}

func newTagRepoStub() *tagRepoStub {
	return &tagRepoStub{usage: make(map[string]int64)}
}

func (r *tagRepoStub) SeedPredefined(ctx context.Context, names []string) error {
	r.seeded = names
	for _, name := range names {
		if _, ok := r.usage[name]; !ok {
			r.usage[name] = 0
		}
	}
	return nil
}

func (r *tagRepoStub) Ensure(ctx context.Context, name string) error {
	if _, ok := r.usage[name]; !ok {
		r.usage[name] = 0
	}
	return nil
}

func (r *tagRepoStub) AdjustUsage(ctx context.Context, name string, delta int64) error {
	next := r.usage[name] + delta
	if next < 0 {
		next = 0
	}
	r.usage[name] = next
	return nil
}

func (r *tagRepoStub) List(ctx context.Context) ([]models.TagRecord, error) {
	out := make([]models.TagRecord, 0, len(r.usage))
	for name, count := range r.usage {
		out = append(out, models.TagRecord{Name: name, UsageCount: count})
	}
	return out, nil
}

type cacheStub struct {
	entries map[string][]byte
	getErr  error
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string][]byte)}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"Follow Up":        "follow-up",
		"  goal setting  ": "goal-setting",
		"GOALS":            "goals",
		"a//b..c":          "a-b-c",
		"--leading--":      "leading",
		"q4_review!":       "q4-review",
		"   ":              "",
		"!!!":              "",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeTag(input), "input %q", input)
	}
}

func TestTagNormalizeDedupesPreservingOrder(t *testing.T) {
	svc := NewTagService(newTagRepoStub(), nil, 0, nil)

	got := svc.Normalize([]string{"Follow Up", "goals", "follow-up", "", "GOALS"})
	assert.Equal(t, []string{"follow-up", "goals"}, got)
}

func TestTagTrackAdjustsUsage(t *testing.T) {
	repo := newTagRepoStub()
	svc := NewTagService(repo, nil, 0, nil)

	require.NoError(t, svc.Track(context.Background(), []string{"goals", "intake"}, nil))
	require.NoError(t, svc.Track(context.Background(), []string{"goals"}, []string{"intake"}))

	assert.Equal(t, int64(2), repo.usage["goals"])
	assert.Equal(t, int64(0), repo.usage["intake"])
}

func TestTagUsageNeverNegative(t *testing.T) {
	repo := newTagRepoStub()
	svc := NewTagService(repo, nil, 0, nil)

	require.NoError(t, svc.Track(context.Background(), nil, []string{"phantom"}))
	assert.Equal(t, int64(0), repo.usage["phantom"])
}

func TestTagSeedRegistersPredefined(t *testing.T) {
	repo := newTagRepoStub()
	svc := NewTagService(repo, nil, 0, nil)

	require.NoError(t, svc.Seed(context.Background()))
	assert.Equal(t, models.PredefinedTags, repo.seeded)
}

func TestTagVocabularyUsesCache(t *testing.T) {
	repo := newTagRepoStub()
	repo.usage["goals"] = 3
	cache := newCacheStub()
	svc := NewTagService(repo, cache, time.Minute, nil)

	first, err := svc.Vocabulary(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A repo change invisible to the cache proves the second read was cached.
	repo.usage["intake"] = 1
	second, err := svc.Vocabulary(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 1)

	// Tracking refreshes the cached vocabulary eagerly.
	require.NoError(t, svc.Track(context.Background(), []string{"intake"}, nil))
	third, err := svc.Vocabulary(context.Background())
	require.NoError(t, err)
	assert.Len(t, third, 2)
}
