package chi

// ErrorCode identifies the failure class in error responses.
type ErrorCode string

const (
	ErrorCodeBadRequest              ErrorCode = "bad_request"
	ErrorCodeValidationFailed        ErrorCode = "validation_failed"
	ErrorCodeCollectionNotFound      ErrorCode = "collection_not_found"
	ErrorCodeCollectionAlreadyExists ErrorCode = "collection_already_exists"
	ErrorCodeDimMismatch             ErrorCode = "vector_dim_mismatch"
	ErrorCodeBatchTooLarge           ErrorCode = "batch_too_large"
	ErrorCodeEmbeddingNotConfigured  ErrorCode = "embedding_not_configured"
	ErrorCodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	ErrorCodeShardUnavailable        ErrorCode = "shard_unavailable"
	ErrorCodeNoShards                ErrorCode = "no_shards_available"
	ErrorCodeNotReady                ErrorCode = "not_ready"
	ErrorCodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body for all error statuses.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateCollectionRequest is the body for POST /collections.
type CreateCollectionRequest struct {
	Name   string `json:"name"`
	Dim    int    `json:"dim"`
	Metric string `json:"metric,omitempty"`
}

// CollectionResponse describes one collection.
type CollectionResponse struct {
	Name   string `json:"name"`
	Dim    int    `json:"dim"`
	Metric string `json:"metric"`
	Points int64  `json:"points,omitempty"`
}

// CollectionListResponse is the body for GET /collections.
type CollectionListResponse struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

// CountResponse is the body for GET /collections/{collection}/count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// CreateIndexRequest is the body for POST /collections/{collection}/index.
type CreateIndexRequest struct {
	Field string `json:"field"`
	Type  string `json:"type,omitempty"`
}

// PointItem carries one point in upsert requests and search results.
type PointItem struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// UpsertPointsRequest is the body for PUT /collections/{collection}/points.
type UpsertPointsRequest struct {
	Points []PointItem `json:"points"`
}

// UpsertPointsResponse reports how many points were written.
type UpsertPointsResponse struct {
	Upserted int `json:"upserted"`
}

// DeletePointsRequest is the body for POST /collections/{collection}/points/delete.
type DeletePointsRequest struct {
	IDs []string `json:"ids"`
}

// DeletePointsResponse reports how many ids were deleted.
type DeletePointsResponse struct {
	Deleted int `json:"deleted"`
}

// SearchRequest is the body for POST /collections/{collection}/search.
type SearchRequest struct {
	Vector         []float32      `json:"vector,omitempty"`
	Text           string         `json:"text,omitempty"`
	TopK           int            `json:"top_k"`
	EF             int            `json:"ef,omitempty"`
	IncludeVectors bool           `json:"include_vectors,omitempty"`
	Filter         map[string]any `json:"filter,omitempty"`
}

// SearchResultItem is one scored hit.
type SearchResultItem struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
	Vector  []float32      `json:"vector,omitempty"`
}

// SearchResponse is the body for POST /collections/{collection}/search.
type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}

// VersionResponse is the body for GET /version.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// StatusResponse is the body for the health probes.
type StatusResponse struct {
	Status string `json:"status"`
}
