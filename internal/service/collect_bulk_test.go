package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobit/geobit/pkg/models"
)

func TestCollectSources_AllSucceed(t *testing.T) {
	store := newFakeStore()
	store.sources["s1"] = models.ContentSource{ID: "s1", Name: "USGS", Site: "usgs.gov", Keywords: "earthquakes", Enabled: true}
	store.sources["s2"] = models.ContentSource{ID: "s2", Name: "NOAA", Site: "noaa.gov", Keywords: "ocean heat", Enabled: true}

	searcher := &fakeSearcher{
		model: "m",
		records: []map[string]any{
			{"title": "Story One", "url": "a.com/1"},
			{"title": "Another Story Entirely", "url": "a.com/2"},
		},
	}
	svc := newTestService(store, &fakeCache{}, searcher, nil)

	col, err := svc.CollectSources(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)

	assert.Equal(t, models.CollectionCompleted, col.Status)
	assert.Empty(t, col.Errors)
	assert.Equal(t, 4, col.ContentCount)
	assert.NotNil(t, col.CompletedAt)
	assert.Equal(t, 2, searcher.calls, "one live search per source")

	// Per-source site constraints flow into the query.
	assert.Contains(t, searcher.queries[0], "site:usgs.gov")
	assert.Contains(t, searcher.queries[1], "site:noaa.gov")

	// Articles carry the source back-reference.
	require.NotEmpty(t, store.upserted)
	assert.Equal(t, "s1", store.upserted[0][0].SourceID)
}

func TestCollectSources_PartialFailureContinues(t *testing.T) {
	store := newFakeStore()
	store.sources["ok"] = models.ContentSource{ID: "ok", Name: "USGS", Keywords: "earthquakes", Enabled: true}
	store.sources["off"] = models.ContentSource{ID: "off", Name: "Dormant", Keywords: "x", Enabled: false}

	searcher := &fakeSearcher{model: "m", records: []map[string]any{{"title": "A", "url": "a.com/1"}}}
	svc := newTestService(store, &fakeCache{}, searcher, nil)

	col, err := svc.CollectSources(context.Background(), []string{"missing", "off", "ok"})
	require.NoError(t, err)

	assert.Equal(t, models.CollectionCompleted, col.Status)
	require.Len(t, col.Errors, 2)
	assert.Equal(t, "missing", col.Errors[0].SourceID)
	assert.Equal(t, "source not found", col.Errors[0].Error)
	assert.Equal(t, "off", col.Errors[1].SourceID)
	assert.Equal(t, "source is disabled", col.Errors[1].Error)
	assert.Equal(t, 1, col.ContentCount, "the healthy source still collected")
}

func TestCollectSources_SearchFailureRecordedPerSource(t *testing.T) {
	store := newFakeStore()
	store.sources["s1"] = models.ContentSource{ID: "s1", Name: "USGS", Keywords: "earthquakes", Enabled: true}

	searcher := &fakeSearcher{err: assert.AnError}
	svc := newTestService(store, &fakeCache{}, searcher, nil)

	col, err := svc.CollectSources(context.Background(), []string{"s1"})
	require.NoError(t, err, "a failing source must not fail the batch")
	require.Len(t, col.Errors, 1)
	assert.Equal(t, "s1", col.Errors[0].SourceID)
	assert.Equal(t, 0, col.ContentCount)
}

func TestCollectSources_FinalizedExactlyOnce(t *testing.T) {
	store := newFakeStore()
	store.sources["s1"] = models.ContentSource{ID: "s1", Name: "USGS", Keywords: "earthquakes", Enabled: true}
	svc := newTestService(store, &fakeCache{}, &fakeSearcher{model: "m"}, nil)

	col, err := svc.CollectSources(context.Background(), []string{"s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.updates, "collection record is mutated once at completion")

	got, err := svc.Collection(context.Background(), col.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CollectionCompleted, got.Status)
}

func TestSources_AddListRemove(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil, nil)
	ctx := context.Background()

	err := svc.AddSource(ctx, &models.ContentSource{Name: "  "})
	assert.ErrorIs(t, err, ErrEmptySourceName)

	src := &models.ContentSource{Name: "USGS", Site: "usgs.gov"}
	require.NoError(t, svc.AddSource(ctx, src))
	assert.NotEmpty(t, src.ID)

	list, err := svc.Sources(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.RemoveSource(ctx, src.ID))
	list, _ = svc.Sources(ctx)
	assert.Empty(t, list)
}
