// Package point handles the write path: upserts and deletes forwarded to the
// writable engine node after dimension validation.
package point

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

// Store is the writable-node contract for point mutations.
type Store interface {
	Upsert(ctx context.Context, collection string, points []domain.Point) error
	DeletePoints(ctx context.Context, collection string, ids []string) error
}

// CollectionReader resolves collection metadata for validation.
type CollectionReader interface {
	Describe(ctx context.Context, name string) (domain.Collection, error)
}

// Service validates and forwards point mutations.
type Service struct {
	store        Store
	colls        CollectionReader
	maxBatchSize int
}

// New creates a point service.
func New(store Store, colls CollectionReader) *Service {
	return &Service{store: store, colls: colls, maxBatchSize: 1000}
}

// WithMaxBatchSize overrides the upsert batch cap.
func (s *Service) WithMaxBatchSize(n int) *Service {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// Upsert writes points to the writer after validating each vector against
// the collection dimension.
func (s *Service) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	if len(points) > s.maxBatchSize {
		return fmt.Errorf("%w: %d points, cap is %d", domain.ErrBatchTooLarge, len(points), s.maxBatchSize)
	}

	col, err := s.colls.Describe(ctx, collection)
	if err != nil {
		return fmt.Errorf("resolve collection: %w", err)
	}
	for i, p := range points {
		if err := p.Validate(col); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}

	if err := s.store.Upsert(ctx, collection, points); err != nil {
		return fmt.Errorf("upsert %d points into %q: %w", len(points), collection, err)
	}
	return nil
}

// Delete removes points by id.
func (s *Service) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: empty point id", domain.ErrInvalidSchema)
		}
	}
	if err := s.store.DeletePoints(ctx, collection, ids); err != nil {
		return fmt.Errorf("delete %d points from %q: %w", len(ids), collection, err)
	}
	return nil
}
