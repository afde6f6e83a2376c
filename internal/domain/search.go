package domain

import "context"

// SearchRequest is a single-query search against a collection.
// Either Vector or Text must be set; Text requires a configured vectorizer.
type SearchRequest struct {
	Vector         []float32
	Text           string
	TopK           int
	EF             int // HNSW search breadth; 0 = engine default
	IncludeVectors bool
	Filter         map[string]any // exact-match payload conditions
}

// SearchResult is one scored hit.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]any
	Vector  []float32 // populated only when requested
}

// EmbeddingResult is the outcome of vectorizing a text query.
type EmbeddingResult struct {
	Embedding   []float32
	TotalTokens int
}

// Embedder vectorizes text queries.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}
