package vecshard

// Collection describes one collection on the cluster.
type Collection struct {
	Name   string `json:"name"`
	Dim    int    `json:"dim"`
	Metric string `json:"metric"`
	Points int64  `json:"points,omitempty"`
}

// Point is one vector with its payload.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// SearchRequest is a similarity query. Exactly one of Vector or Text must be
// set; Text requires the middleware to run with an embedding provider.
type SearchRequest struct {
	Vector         []float32      `json:"vector,omitempty"`
	Text           string         `json:"text,omitempty"`
	TopK           int            `json:"top_k"`
	EF             int            `json:"ef,omitempty"`
	IncludeVectors bool           `json:"include_vectors,omitempty"`
	Filter         map[string]any `json:"filter,omitempty"`
}

// SearchResult is one scored hit of the merged top-k list.
type SearchResult struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
	Vector  []float32      `json:"vector,omitempty"`
}

// Version reports the middleware build.
type Version struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

type collectionListResponse struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

type upsertPointsRequest struct {
	Points []Point `json:"points"`
}

type deletePointsRequest struct {
	IDs []string `json:"ids"`
}

type searchResponse struct {
	Items []SearchResult `json:"items"`
	Total int            `json:"total"`
}

type createCollectionRequest struct {
	Name   string `json:"name"`
	Dim    int    `json:"dim"`
	Metric string `json:"metric,omitempty"`
}

type createIndexRequest struct {
	Field string `json:"field"`
	Type  string `json:"type,omitempty"`
}
