package models

import (
	"strings"
	"time"

	dbtypes "github.com/geobit/geobit/internal/db"
)

// Category classifies an article into one of the fixed newsletter sections.
type Category string

const (
	CategoryGeology      Category = "geology"
	CategoryClimate      Category = "climate"
	CategoryOceanography Category = "oceanography"
	CategoryResearch     Category = "research"
	CategoryIndustry     Category = "industry"
	CategoryTechnology   Category = "technology"
)

// DefaultCategory is assigned when an AI-returned category is missing or
// not a member of the enum.
const DefaultCategory = CategoryResearch

var validCategories = map[Category]bool{
	CategoryGeology:      true,
	CategoryClimate:      true,
	CategoryOceanography: true,
	CategoryResearch:     true,
	CategoryIndustry:     true,
	CategoryTechnology:   true,
}

// ParseCategory coerces an untrusted category string into the enum.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if validCategories[c] {
		return c
	}
	return DefaultCategory
}

// Article is a normalized content record. Every persisted Article has
// passed through normalize; raw AI fields never survive past that boundary.
type Article struct {
	ID            string    `db:"id" json:"id,omitempty"`
	Title         string    `db:"title" json:"title"`
	URL           string    `db:"url" json:"url"`
	PublishedAt   time.Time `db:"published_at" json:"publishedDate"`
	Source        string    `db:"source" json:"source"`
	Summary       string    `db:"summary" json:"summary"`
	Category      Category  `db:"category" json:"category"`
	InterestScore int       `db:"interest_score" json:"interestScore,omitempty"`
	SourceID      string    `db:"source_id" json:"sourceId,omitempty"`
	Model         string    `db:"model" json:"model,omitempty"`
}

// SearchCacheEntry is one append-only cache row: the normalized query a
// past search ran with and the articles it produced.
type SearchCacheEntry struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Results     []Article `json:"results"`
	ResultCount int       `json:"resultCount"`
	CreatedAt   time.Time `json:"timestamp"`
}

// CollectionStatus tracks a bulk collection job's lifecycle.
type CollectionStatus string

const (
	CollectionPending    CollectionStatus = "pending"
	CollectionInProgress CollectionStatus = "in_progress"
	CollectionCompleted  CollectionStatus = "completed"
)

// ContentCollection is the batch job record for collecting from multiple
// content sources. Errors collects per-source failures without aborting
// the batch.
type ContentCollection struct {
	ID           string              `db:"id" json:"id"`
	SourceIDs    dbtypes.StringSlice `db:"source_ids" json:"sourceIds"`
	Status       CollectionStatus    `db:"status" json:"status"`
	ContentCount int                 `db:"content_count" json:"contentCount"`
	Errors       dbtypes.ErrorList   `db:"errors" json:"errors"`
	StartedAt    time.Time           `db:"started_at" json:"startedAt"`
	CompletedAt  *time.Time          `db:"completed_at" json:"completedAt,omitempty"`
}

// ContentSource is a configured external publisher the bulk collector
// pulls from.
type ContentSource struct {
	ID       string    `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	Site     string    `db:"site" json:"site"`
	Keywords string    `db:"keywords" json:"keywords"`
	Enabled  bool      `db:"enabled" json:"enabled"`
	AddedAt  time.Time `db:"added_at" json:"addedAt"`
}

// Pagination describes one page of a result set.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}
