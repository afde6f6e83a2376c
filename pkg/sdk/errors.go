package vecshard

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced from API error codes.
// Use errors.Is() to check.
var (
	ErrNotFound         = errors.New("collection not found")
	ErrAlreadyExists    = errors.New("collection already exists")
	ErrValidation       = errors.New("validation failed")
	ErrDimMismatch      = errors.New("vector dimension mismatch")
	ErrBatchTooLarge    = errors.New("batch too large")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrShardUnavailable = errors.New("shard unavailable")
	ErrNotReady         = errors.New("service not ready")
)

// APIError is a non-2xx response from the middleware.
type APIError struct {
	Status  int
	Code    string
	Message string
	Shard   string // set for shard_unavailable responses
}

func (e *APIError) Error() string {
	if e.Shard != "" {
		return fmt.Sprintf("vecshard: %s (%d): %s [shard %s]", e.Code, e.Status, e.Message, e.Shard)
	}
	return fmt.Sprintf("vecshard: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap maps API error codes onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "collection_not_found":
		return ErrNotFound
	case "collection_already_exists":
		return ErrAlreadyExists
	case "validation_failed":
		return ErrValidation
	case "vector_dim_mismatch":
		return ErrDimMismatch
	case "batch_too_large":
		return ErrBatchTooLarge
	case "shard_unavailable":
		return ErrShardUnavailable
	case "no_shards_available", "not_ready":
		return ErrNotReady
	}
	if e.Status == 401 {
		return ErrUnauthorized
	}
	return nil
}
