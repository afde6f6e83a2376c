package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing collection.
	ErrNotFound = errors.New("collection not found")
	// ErrAlreadyExists signals a duplicate collection.
	ErrAlreadyExists = errors.New("collection already exists")
	// ErrInvalidSchema signals an invalid collection definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidTopK signals a top-k outside the allowed range.
	ErrInvalidTopK = errors.New("invalid topk")
	// ErrInvalidEF signals a search ef outside the allowed range.
	ErrInvalidEF = errors.New("invalid ef")
	// ErrDimMismatch signals a vector dimension mismatch.
	ErrDimMismatch = errors.New("vector dimension mismatch")
	// ErrNoShards signals that no healthy shard is available for routing.
	ErrNoShards = errors.New("no shards available")
	// ErrShardUnavailable signals a downstream engine node failure.
	ErrShardUnavailable = errors.New("shard unavailable")
	// ErrEmbeddingNotConfigured signals a text query without a vectorizer.
	ErrEmbeddingNotConfigured = errors.New("embedding not configured")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrBatchTooLarge signals an upsert exceeding the batch cap.
	ErrBatchTooLarge = errors.New("batch too large")
	// ErrNotReady signals that the cluster has not passed the readiness gate.
	ErrNotReady = errors.New("cluster not ready")
)

// ShardError wraps ErrShardUnavailable with the failing shard address.
type ShardError struct {
	Addr string
	Err  error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("shard %s: %v", e.Addr, e.Err)
}

func (e *ShardError) Unwrap() error { return ErrShardUnavailable }

// NewShardError wraps a downstream failure with its shard address.
func NewShardError(addr string, err error) error {
	return &ShardError{Addr: addr, Err: err}
}
