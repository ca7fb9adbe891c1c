package service

import (
	"context"
	"fmt"
	"time"

	dbtypes "github.com/geobit/geobit/internal/db"
	"github.com/geobit/geobit/internal/search"
	"github.com/geobit/geobit/pkg/models"
)

// sourcePageSize is how many articles one source contributes per run.
const sourcePageSize = 50

// sourceLookback bounds per-source collection to recent publications.
const sourceLookback = 7 * 24 * time.Hour

// CollectSources collects content from each configured source in turn,
// tracking the batch in a ContentCollection record. Sources are processed
// sequentially: each triggers its own external API call and they all
// share one rate limit, so fanning out buys retries, not throughput.
// A failing source is recorded in the errors list and does not abort the
// rest of the batch; partial success is the normal outcome.
func (s *Service) CollectSources(ctx context.Context, sourceIDs []string) (*models.ContentCollection, error) {
	collection := &models.ContentCollection{
		SourceIDs: sourceIDs,
		Status:    models.CollectionInProgress,
		Errors:    dbtypes.ErrorList{},
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.CreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	sources, err := s.store.GetSources(ctx, sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	byID := make(map[string]models.ContentSource, len(sources))
	for _, src := range sources {
		byID[src.ID] = src
	}

	for _, id := range sourceIDs {
		src, ok := byID[id]
		switch {
		case !ok:
			collection.Errors = append(collection.Errors, dbtypes.SourceError{SourceID: id, Error: "source not found"})
			continue
		case !src.Enabled:
			collection.Errors = append(collection.Errors, dbtypes.SourceError{SourceID: id, Error: "source is disabled"})
			continue
		}

		result, err := s.Collect(ctx, CollectRequest{
			Keywords:  sourceKeywords(src),
			DateRange: search.DateRange{Start: time.Now().Add(-sourceLookback)},
			Sources:   sourceSites(src),
			SourceID:  src.ID,
			Page:      1,
			PageSize:  sourcePageSize,
		})
		if err != nil {
			s.log.Warn("source collection failed", "source", src.ID, "error", err)
			collection.Errors = append(collection.Errors, dbtypes.SourceError{SourceID: id, Error: err.Error()})
			continue
		}
		collection.ContentCount += result.Pagination.Total
	}

	completed := time.Now().UTC()
	collection.Status = models.CollectionCompleted
	collection.CompletedAt = &completed
	if err := s.store.UpdateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("finalize collection: %w", err)
	}
	return collection, nil
}

// Collection returns a batch record by id.
func (s *Service) Collection(ctx context.Context, id string) (*models.ContentCollection, error) {
	return s.store.GetCollection(ctx, id)
}

func sourceKeywords(src models.ContentSource) string {
	if src.Keywords != "" {
		return src.Keywords
	}
	return src.Name
}

func sourceSites(src models.ContentSource) []string {
	if src.Site == "" {
		return nil
	}
	return []string{src.Site}
}
