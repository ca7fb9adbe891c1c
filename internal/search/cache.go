package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/geobit/geobit/internal/similarity"
	"github.com/geobit/geobit/pkg/models"
)

const (
	cacheKey = "geobit:search_cache"

	// CacheFreshness is how long a stored search stays eligible. Entries
	// are never deleted; staleness is enforced at read time.
	CacheFreshness = 24 * time.Hour

	// QueryMatchThreshold is the minimum Jaccard score between the input
	// query and a stored one for the stored results to count as a hit.
	QueryMatchThreshold = 0.8

	// maxCandidates bounds how many recent entries a lookup inspects.
	maxCandidates = 10
)

// Cache stores past search results in a redis sorted set scored by
// creation time. It is append-only: writes add entries, reads filter by
// freshness, nothing evicts. The cache is advisory — losing it only
// costs an extra external API call.
type Cache struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb, log: slog.Default()}
}

// Lookup returns the most recent fresh entry whose stored query is
// similar enough to query. The bool reports a hit; a redis error is
// returned as a miss with the error so callers can fall through to a
// live search.
func (c *Cache) Lookup(ctx context.Context, query string) (models.SearchCacheEntry, bool, error) {
	now := time.Now()
	members, err := c.rdb.ZRevRangeByScore(ctx, cacheKey, &redis.ZRangeBy{
		Min:    fmt.Sprintf("%d", now.Add(-CacheFreshness).Unix()),
		Max:    "+inf",
		Offset: 0,
		Count:  maxCandidates,
	}).Result()
	if err != nil {
		return models.SearchCacheEntry{}, false, fmt.Errorf("cache read: %w", err)
	}

	entries := make([]models.SearchCacheEntry, 0, len(members))
	for _, m := range members {
		var entry models.SearchCacheEntry
		if err := json.Unmarshal([]byte(m), &entry); err != nil {
			c.log.Warn("skipping corrupt cache entry", "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	if entry, ok := MatchEntry(entries, query, now); ok {
		c.log.Info("search cache hit", "query", query, "entry", entry.ID, "results", entry.ResultCount)
		return entry, true, nil
	}
	return models.SearchCacheEntry{}, false, nil
}

// MatchEntry finds the first entry that is both fresh relative to now and
// sufficiently similar to query. Entries are expected newest-first.
func MatchEntry(entries []models.SearchCacheEntry, query string, now time.Time) (models.SearchCacheEntry, bool) {
	normalized := similarity.NormalizeText(query)
	for _, e := range entries {
		if now.Sub(e.CreatedAt) >= CacheFreshness {
			continue
		}
		if similarity.Jaccard(normalized, e.Query) > QueryMatchThreshold {
			return e, true
		}
	}
	return models.SearchCacheEntry{}, false
}

// Store appends a new cache entry and returns its id. There is no update
// path; repeated stores for similar queries simply add newer entries that
// win future lookups by recency.
func (c *Cache) Store(ctx context.Context, query string, results []models.Article) (string, error) {
	entry := models.SearchCacheEntry{
		ID:          uuid.New().String(),
		Query:       similarity.NormalizeText(query),
		Results:     results,
		ResultCount: len(results),
		CreatedAt:   time.Now(),
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("cache marshal: %w", err)
	}
	err = c.rdb.ZAdd(ctx, cacheKey, redis.Z{
		Score:  float64(entry.CreatedAt.Unix()),
		Member: payload,
	}).Err()
	if err != nil {
		return "", fmt.Errorf("cache write: %w", err)
	}
	return entry.ID, nil
}
