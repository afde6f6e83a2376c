// Package collection forwards collection lifecycle operations to the writable
// engine node and caches collection metadata for the hot search path.
package collection

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

// Service handles collection lifecycle against the writable node.
type Service struct {
	store Store

	mu   sync.RWMutex
	meta map[string]domain.Collection
}

// New creates a collection service.
func New(store Store) *Service {
	return &Service{store: store, meta: make(map[string]domain.Collection)}
}

// Create validates and creates a collection on the writer.
func (s *Service) Create(ctx context.Context, name string, dim int, metric domain.Metric) (domain.Collection, error) {
	col, err := domain.NewCollection(name, dim, metric)
	if err != nil {
		return domain.Collection{}, err
	}
	if err := s.store.CreateCollection(ctx, col); err != nil {
		return domain.Collection{}, fmt.Errorf("create collection %q: %w", name, err)
	}
	return col, nil
}

// Drop removes a collection and invalidates its cached metadata.
func (s *Service) Drop(ctx context.Context, name string) error {
	if err := s.store.DropCollection(ctx, name); err != nil {
		return fmt.Errorf("drop collection %q: %w", name, err)
	}
	s.invalidate(name)
	return nil
}

// Has reports whether the collection exists.
func (s *Service) Has(ctx context.Context, name string) (bool, error) {
	ok, err := s.store.HasCollection(ctx, name)
	if err != nil {
		return false, fmt.Errorf("has collection %q: %w", name, err)
	}
	return ok, nil
}

// Describe returns collection metadata, serving from the cache when warm.
// The cache mirrors the writer; Drop invalidates it. Point counts are only
// fresh on a cache miss.
func (s *Service) Describe(ctx context.Context, name string) (domain.Collection, error) {
	s.mu.RLock()
	col, ok := s.meta[name]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	col, err := s.store.DescribeCollection(ctx, name)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("describe collection %q: %w", name, err)
	}

	s.mu.Lock()
	s.meta[name] = col
	s.mu.Unlock()
	return col, nil
}

// List returns all collection names known to the writer.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// Count returns the exact point count of a collection.
func (s *Service) Count(ctx context.Context, name string) (int64, error) {
	n, err := s.store.CountPoints(ctx, name)
	if err != nil {
		return -1, fmt.Errorf("count collection %q: %w", name, err)
	}
	return n, nil
}

// CreateFieldIndex builds a payload field index on the writer.
func (s *Service) CreateFieldIndex(ctx context.Context, collection, field, fieldType string) error {
	if field == "" {
		return fmt.Errorf("%w: index field is empty", domain.ErrInvalidSchema)
	}
	if err := s.store.CreateFieldIndex(ctx, collection, field, fieldType); err != nil {
		return fmt.Errorf("create index %s/%s: %w", collection, field, err)
	}
	return nil
}

// DropFieldIndex removes a payload field index.
func (s *Service) DropFieldIndex(ctx context.Context, collection, field string) error {
	if err := s.store.DropFieldIndex(ctx, collection, field); err != nil {
		return fmt.Errorf("drop index %s/%s: %w", collection, field, err)
	}
	return nil
}

func (s *Service) invalidate(name string) {
	s.mu.Lock()
	delete(s.meta, name)
	s.mu.Unlock()
}
