package search

import (
	"context"

	"github.com/kailas-cloud/vecshard/internal/domain"
	"github.com/kailas-cloud/vecshard/internal/engine"
)

// Router resolves the shard set to scatter a search over.
type Router interface {
	Route(ctx context.Context, collection string) ([]engine.Engine, error)
}

// CollectionReader resolves collection metadata (dimension, metric).
type CollectionReader interface {
	Describe(ctx context.Context, name string) (domain.Collection, error)
}

// Limits bounds the search path.
type Limits struct {
	MaxTopK   int
	MaxEF     int
	DefaultEF int
	// MaxFanout caps concurrent per-shard requests for one search.
	MaxFanout int
}

// ApplyDefaults fills zero limits with the service defaults.
func (l *Limits) ApplyDefaults() {
	if l.MaxTopK <= 0 {
		l.MaxTopK = 2048
	}
	if l.MaxEF <= 0 {
		l.MaxEF = 2048
	}
	if l.MaxFanout <= 0 {
		l.MaxFanout = 16
	}
}
