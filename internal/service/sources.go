package service

import (
	"context"
	"errors"
	"strings"

	"github.com/geobit/geobit/pkg/models"
)

var ErrEmptySourceName = errors.New("source name must not be empty")

// Sources lists all configured content sources.
func (s *Service) Sources(ctx context.Context) ([]models.ContentSource, error) {
	return s.store.ListSources(ctx)
}

// AddSource registers a content source for bulk collection.
func (s *Service) AddSource(ctx context.Context, src *models.ContentSource) error {
	if strings.TrimSpace(src.Name) == "" {
		return ErrEmptySourceName
	}
	return s.store.CreateSource(ctx, src)
}

// RemoveSource deletes a content source. Articles already collected from
// it keep their sourceId back-reference.
func (s *Service) RemoveSource(ctx context.Context, id string) error {
	return s.store.DeleteSource(ctx, id)
}
