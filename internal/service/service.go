package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geobit/geobit/internal/dedupe"
	"github.com/geobit/geobit/internal/llm"
	"github.com/geobit/geobit/internal/normalize"
	"github.com/geobit/geobit/internal/search"
	"github.com/geobit/geobit/pkg/models"
)

// Input and configuration preconditions. Handlers match these with
// errors.Is to pick response shapes.
var (
	ErrEmptyKeywords = errors.New("keywords must not be empty")
	ErrEmptyContent  = errors.New("content must not be empty")
	ErrMissingAPIKey = errors.New("search API key is not configured")
)

// ArticleStore is the persistence contract the service needs.
type ArticleStore interface {
	UpsertArticles(ctx context.Context, articles []models.Article) error
	RecentArticles(ctx context.Context, limit, offset int) ([]models.Article, error)
	CountArticles(ctx context.Context) (int, error)
	GetSources(ctx context.Context, ids []string) ([]models.ContentSource, error)
	ListSources(ctx context.Context) ([]models.ContentSource, error)
	CreateSource(ctx context.Context, s *models.ContentSource) error
	DeleteSource(ctx context.Context, id string) error
	CreateCollection(ctx context.Context, c *models.ContentCollection) error
	UpdateCollection(ctx context.Context, c *models.ContentCollection) error
	GetCollection(ctx context.Context, id string) (*models.ContentCollection, error)
}

// SearchCache stores and recalls recent search results.
type SearchCache interface {
	Lookup(ctx context.Context, query string) (models.SearchCacheEntry, bool, error)
	Store(ctx context.Context, query string, results []models.Article) (string, error)
}

// Searcher runs a live web-grounded article search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]map[string]any, string, error)
}

// Completer issues a raw chat completion; used by the content processor.
type Completer interface {
	Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

type Service struct {
	store     ArticleStore
	cache     SearchCache
	searcher  Searcher
	completer Completer
	apiKey    string
	log       *slog.Logger
}

func NewService(store ArticleStore, cache SearchCache, searcher Searcher, completer Completer, apiKey string) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		searcher:  searcher,
		completer: completer,
		apiKey:    apiKey,
		log:       slog.Default(),
	}
}

// CollectRequest describes one content search.
type CollectRequest struct {
	Keywords  string
	DateRange search.DateRange
	Sources   []string
	SourceID  string
	Page      int
	PageSize  int
}

// CollectResult is one page of collected articles.
type CollectResult struct {
	Items      []models.Article
	Pagination models.Pagination
	SearchID   string
	Query      string
	Cached     bool
}

// Collect is the content collection entry point: build query, check the
// cache, search live on a miss, normalize, dedupe, persist, paginate.
// Steps run strictly in that order within one call; concurrent identical
// searches may each do a live search, which is accepted duplicate spend
// since the cache is advisory.
func (s *Service) Collect(ctx context.Context, req CollectRequest) (CollectResult, error) {
	if strings.TrimSpace(req.Keywords) == "" {
		return CollectResult{}, ErrEmptyKeywords
	}
	if s.apiKey == "" {
		return CollectResult{}, ErrMissingAPIKey
	}

	query := search.BuildQuery(req.Keywords, req.DateRange, req.Sources)

	if entry, ok, err := s.cache.Lookup(ctx, query); err != nil {
		// Cache trouble downgrades to a miss; the search still works.
		s.log.Warn("cache lookup failed, searching live", "error", err)
	} else if ok {
		items, pg := paginate(entry.Results, req.Page, req.PageSize)
		return CollectResult{Items: items, Pagination: pg, SearchID: entry.ID, Query: query, Cached: true}, nil
	}

	raw, model, err := s.searcher.Search(ctx, query)
	if err != nil {
		return CollectResult{}, err
	}

	articles := dedupe.Articles(normalize.Articles(raw, time.Now()))
	for i := range articles {
		articles[i].Model = model
		articles[i].SourceID = req.SourceID
	}

	searchID, err := s.cache.Store(ctx, query, articles)
	if err != nil {
		s.log.Warn("cache store failed", "error", err)
	}
	if err := s.store.UpsertArticles(ctx, articles); err != nil {
		return CollectResult{}, err
	}

	items, pg := paginate(articles, req.Page, req.PageSize)
	return CollectResult{Items: items, Pagination: pg, SearchID: searchID, Query: query}, nil
}

// Recent returns a page of previously collected articles, newest first.
func (s *Service) Recent(ctx context.Context, page, pageSize int) ([]models.Article, models.Pagination, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	total, err := s.store.CountArticles(ctx)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	pg := pageFor(total, page, pageSize)
	items, err := s.store.RecentArticles(ctx, pageSize, (pg.Page-1)*pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, pg, nil
}

const defaultPageSize = 10

// paginate slices items into the requested page. The page number is
// clamped into [1, totalPages]; a zero-item set yields totalPages 0 with
// page pinned to 1 and an empty slice.
func paginate(items []models.Article, page, pageSize int) ([]models.Article, models.Pagination) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pg := pageFor(len(items), page, pageSize)

	start := (pg.Page - 1) * pageSize
	if start >= len(items) {
		return []models.Article{}, pg
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pg
}

func pageFor(total, page, pageSize int) models.Pagination {
	totalPages := (total + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	if totalPages == 0 {
		page = 1
	}
	return models.Pagination{Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}
