package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/geobit/geobit/pkg/models"
)

func entry(id, query string, age time.Duration, now time.Time) models.SearchCacheEntry {
	return models.SearchCacheEntry{
		ID:        id,
		Query:     query,
		Results:   []models.Article{{Title: "t", URL: "https://x.com"}},
		CreatedAt: now.Add(-age),
	}
}

func TestMatchEntry_SimilarFreshEntryHits(t *testing.T) {
	now := time.Now()
	entries := []models.SearchCacheEntry{
		entry("e1", "volcanic eruptions iceland "+FocusSuffix, time.Hour, now),
	}

	got, ok := MatchEntry(entries, "Volcanic  Eruptions Iceland "+FocusSuffix, now)
	assert.True(t, ok)
	assert.Equal(t, "e1", got.ID)
}

func TestMatchEntry_DissimilarQueryMisses(t *testing.T) {
	now := time.Now()
	entries := []models.SearchCacheEntry{
		entry("e1", "coral reef bleaching pacific", time.Hour, now),
	}

	_, ok := MatchEntry(entries, "lithium mining nevada desert expansion", now)
	assert.False(t, ok)
}

func TestMatchEntry_FreshnessBoundary(t *testing.T) {
	now := time.Now()
	query := "volcanic eruptions iceland"

	justFresh := []models.SearchCacheEntry{
		entry("fresh", query, CacheFreshness-time.Second, now),
	}
	_, ok := MatchEntry(justFresh, query, now)
	assert.True(t, ok, "entry just inside the freshness window should hit")

	justStale := []models.SearchCacheEntry{
		entry("stale", query, CacheFreshness+time.Second, now),
	}
	_, ok = MatchEntry(justStale, query, now)
	assert.False(t, ok, "entry just outside the freshness window should miss")
}

func TestMatchEntry_FirstFreshSimilarEntryWins(t *testing.T) {
	now := time.Now()
	query := "volcanic eruptions iceland"
	entries := []models.SearchCacheEntry{
		entry("newest", query, time.Minute, now),
		entry("older", query, time.Hour, now),
	}

	got, ok := MatchEntry(entries, query, now)
	assert.True(t, ok)
	assert.Equal(t, "newest", got.ID)
}

func TestMatchEntry_Empty(t *testing.T) {
	_, ok := MatchEntry(nil, "anything at all", time.Now())
	assert.False(t, ok)
}
