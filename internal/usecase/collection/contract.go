package collection

import (
	"context"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

// Store is the writable-node contract for collection lifecycle.
// engine.Engine satisfies it.
type Store interface {
	CreateCollection(ctx context.Context, col domain.Collection) error
	DropCollection(ctx context.Context, name string) error
	HasCollection(ctx context.Context, name string) (bool, error)
	DescribeCollection(ctx context.Context, name string) (domain.Collection, error)
	ListCollections(ctx context.Context) ([]string, error)
	CountPoints(ctx context.Context, name string) (int64, error)
	CreateFieldIndex(ctx context.Context, collection, field, fieldType string) error
	DropFieldIndex(ctx context.Context, collection, field string) error
}
