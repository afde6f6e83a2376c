// Package engine defines the downstream contract the middleware speaks to
// vector-engine nodes. The qdrant subpackage implements it over gRPC.
package engine

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

// Engine is a single vector-engine node.
type Engine interface {
	// Addr returns the normalized node address (host:port).
	Addr() string

	// Ping checks node liveness.
	Ping(ctx context.Context) error
	// WaitForReady blocks until the node answers a ping or the timeout passes.
	WaitForReady(ctx context.Context, timeout time.Duration) error

	CreateCollection(ctx context.Context, col domain.Collection) error
	DropCollection(ctx context.Context, name string) error
	HasCollection(ctx context.Context, name string) (bool, error)
	DescribeCollection(ctx context.Context, name string) (domain.Collection, error)
	ListCollections(ctx context.Context) ([]string, error)
	CountPoints(ctx context.Context, name string) (int64, error)

	CreateFieldIndex(ctx context.Context, collection, field, fieldType string) error
	DropFieldIndex(ctx context.Context, collection, field string) error

	Upsert(ctx context.Context, collection string, points []domain.Point) error
	DeletePoints(ctx context.Context, collection string, ids []string) error

	Search(ctx context.Context, collection string, req domain.SearchRequest) ([]domain.SearchResult, error)

	Close() error
}

// Dialer opens a connection to a node address. The cluster router uses it to
// build pool members, and tests substitute fakes.
type Dialer func(addr string) (Engine, error)
