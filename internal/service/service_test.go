package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobit/geobit/internal/llm"
	"github.com/geobit/geobit/pkg/models"
)

// --- fakes ---

type fakeStore struct {
	upserted    [][]models.Article
	recent      []models.Article
	total       int
	sources     map[string]models.ContentSource
	collections map[string]*models.ContentCollection
	updates     int
	upsertErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sources:     map[string]models.ContentSource{},
		collections: map[string]*models.ContentCollection{},
	}
}

func (f *fakeStore) UpsertArticles(_ context.Context, articles []models.Article) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, articles)
	return nil
}

func (f *fakeStore) RecentArticles(_ context.Context, limit, offset int) ([]models.Article, error) {
	end := offset + limit
	if offset >= len(f.recent) {
		return nil, nil
	}
	if end > len(f.recent) {
		end = len(f.recent)
	}
	return f.recent[offset:end], nil
}

func (f *fakeStore) CountArticles(context.Context) (int, error) { return f.total, nil }

func (f *fakeStore) GetSources(_ context.Context, ids []string) ([]models.ContentSource, error) {
	var out []models.ContentSource
	for _, id := range ids {
		if s, ok := f.sources[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSources(context.Context) ([]models.ContentSource, error) {
	var out []models.ContentSource
	for _, s := range f.sources {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) CreateSource(_ context.Context, s *models.ContentSource) error {
	if s.ID == "" {
		s.ID = fmt.Sprintf("src-%d", len(f.sources)+1)
	}
	f.sources[s.ID] = *s
	return nil
}

func (f *fakeStore) DeleteSource(_ context.Context, id string) error {
	delete(f.sources, id)
	return nil
}

func (f *fakeStore) CreateCollection(_ context.Context, c *models.ContentCollection) error {
	if c.ID == "" {
		c.ID = "col-1"
	}
	cp := *c
	f.collections[c.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateCollection(_ context.Context, c *models.ContentCollection) error {
	f.updates++
	cp := *c
	f.collections[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetCollection(_ context.Context, id string) (*models.ContentCollection, error) {
	c, ok := f.collections[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

type fakeCache struct {
	entry    models.SearchCacheEntry
	hit      bool
	lookups  []string
	stored   []string
	storeErr error
}

func (f *fakeCache) Lookup(_ context.Context, query string) (models.SearchCacheEntry, bool, error) {
	f.lookups = append(f.lookups, query)
	return f.entry, f.hit, nil
}

func (f *fakeCache) Store(_ context.Context, query string, results []models.Article) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.stored = append(f.stored, query)
	return "cache-entry-1", nil
}

type fakeSearcher struct {
	records []map[string]any
	model   string
	err     error
	calls   int
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]map[string]any, string, error) {
	f.calls++
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, "", f.err
	}
	return f.records, f.model, nil
}

type fakeChat struct {
	content string
	model   string
	err     error
}

func (f *fakeChat) Complete(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{
		Model:   f.model,
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: f.content}}},
	}, nil
}

func newTestService(store *fakeStore, cache *fakeCache, searcher *fakeSearcher, chat *fakeChat) *Service {
	if store == nil {
		store = newFakeStore()
	}
	if cache == nil {
		cache = &fakeCache{}
	}
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	if chat == nil {
		chat = &fakeChat{content: "{}"}
	}
	return NewService(store, cache, searcher, chat, "test-key")
}

// --- Collect ---

func TestCollect_EmptyKeywords(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	_, err := svc.Collect(context.Background(), CollectRequest{Keywords: "   "})
	assert.ErrorIs(t, err, ErrEmptyKeywords)
}

func TestCollect_MissingAPIKey(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeCache{}, &fakeSearcher{}, &fakeChat{}, "")
	_, err := svc.Collect(context.Background(), CollectRequest{Keywords: "quakes"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCollect_CacheHitSkipsLiveSearch(t *testing.T) {
	cache := &fakeCache{
		hit: true,
		entry: models.SearchCacheEntry{
			ID:      "cached-1",
			Results: []models.Article{{Title: "Cached Story", URL: "https://c.com"}},
		},
	}
	searcher := &fakeSearcher{}
	store := newFakeStore()
	svc := newTestService(store, cache, searcher, nil)

	res, err := svc.Collect(context.Background(), CollectRequest{Keywords: "quakes", Page: 1, PageSize: 10})
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.Equal(t, "cached-1", res.SearchID)
	assert.Equal(t, 0, searcher.calls, "cache hit must not trigger a live search")
	assert.Empty(t, store.upserted, "cache hit must not re-persist articles")
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Cached Story", res.Items[0].Title)
}

func TestCollect_MissRunsFullPipeline(t *testing.T) {
	searcher := &fakeSearcher{
		model: "perplexity/sonar",
		records: []map[string]any{
			{"title": "Arctic Ice Melt Accelerates", "url": "example.com/a"},
			{"title": "Arctic ice melt accelerates", "url": "example.com/a"},
			{"title": "New Mineral Found", "url": "example.com/c", "category": "MINING?"},
		},
	}
	cache := &fakeCache{}
	store := newFakeStore()
	svc := newTestService(store, cache, searcher, nil)

	res, err := svc.Collect(context.Background(), CollectRequest{Keywords: "arctic", Page: 1, PageSize: 10})
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Equal(t, "cache-entry-1", res.SearchID)
	assert.Equal(t, 1, searcher.calls)
	assert.Contains(t, res.Query, "arctic")

	// Same URL collapses, off-enum category lands on the default.
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Arctic Ice Melt Accelerates", res.Items[0].Title)
	assert.Equal(t, models.CategoryResearch, res.Items[1].Category)
	assert.Equal(t, "perplexity/sonar", res.Items[0].Model)

	require.Len(t, store.upserted, 1)
	assert.Len(t, store.upserted[0], 2)
	assert.Len(t, cache.stored, 1)
}

func TestCollect_SearchErrorPropagates(t *testing.T) {
	searcher := &fakeSearcher{err: &llm.APIError{Status: 429, Message: "limited"}}
	svc := newTestService(nil, nil, searcher, nil)

	_, err := svc.Collect(context.Background(), CollectRequest{Keywords: "quakes"})
	require.Error(t, err)
	assert.True(t, llm.IsRateLimit(err))
}

func TestCollect_CacheStoreFailureIsNotFatal(t *testing.T) {
	searcher := &fakeSearcher{records: []map[string]any{{"title": "A", "url": "a.com/1"}}}
	cache := &fakeCache{storeErr: errors.New("redis down")}
	store := newFakeStore()
	svc := newTestService(store, cache, searcher, nil)

	res, err := svc.Collect(context.Background(), CollectRequest{Keywords: "quakes"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Len(t, store.upserted, 1, "articles still persisted when cache write fails")
}

func TestCollect_EmptyResultSet(t *testing.T) {
	svc := newTestService(nil, nil, &fakeSearcher{}, nil)

	res, err := svc.Collect(context.Background(), CollectRequest{Keywords: "nothing", Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.Pagination.Total)
	assert.Equal(t, 0, res.Pagination.TotalPages)
	assert.Equal(t, 1, res.Pagination.Page)
}

// --- pagination ---

func articlesN(n int) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		out[i] = models.Article{Title: fmt.Sprintf("a%d", i)}
	}
	return out
}

func TestPaginate_Math(t *testing.T) {
	items := articlesN(15)

	page1, pg := paginate(items, 1, 10)
	assert.Len(t, page1, 10)
	assert.Equal(t, 2, pg.TotalPages)
	assert.Equal(t, 15, pg.Total)

	page2, pg := paginate(items, 2, 10)
	assert.Len(t, page2, 5)
	assert.Equal(t, 2, pg.Page)
	assert.Equal(t, "a10", page2[0].Title)
}

func TestPaginate_PageClamping(t *testing.T) {
	items := articlesN(15)

	_, pg := paginate(items, 0, 10)
	assert.Equal(t, 1, pg.Page)

	_, pg = paginate(items, 99, 10)
	assert.Equal(t, 2, pg.Page)

	_, pg = paginate(items, -5, 10)
	assert.Equal(t, 1, pg.Page)
}

func TestPaginate_DefaultPageSize(t *testing.T) {
	items := articlesN(25)
	page, pg := paginate(items, 1, 0)
	assert.Len(t, page, defaultPageSize)
	assert.Equal(t, 3, pg.TotalPages)
}

func TestPaginate_ExactMultiple(t *testing.T) {
	items := articlesN(20)
	_, pg := paginate(items, 1, 10)
	assert.Equal(t, 2, pg.TotalPages)
}
