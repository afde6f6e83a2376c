// Package chi is the HTTP front of the middleware.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecshard/internal/domain"
	collectionuc "github.com/kailas-cloud/vecshard/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/vecshard/internal/usecase/health"
	pointuc "github.com/kailas-cloud/vecshard/internal/usecase/point"
	searchuc "github.com/kailas-cloud/vecshard/internal/usecase/search"
	"github.com/kailas-cloud/vecshard/internal/version"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server carries the use case services behind the HTTP routes.
type Server struct {
	collections   *collectionuc.Service
	points        *pointuc.Service
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections *collectionuc.Service,
	points *pointuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		collections: collections,
		points:      points,
		search:      search,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		shardErrorHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeCollectionNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, ErrorCodeCollectionAlreadyExists),
		sentinelHandler(domain.ErrDimMismatch, http.StatusBadRequest, ErrorCodeDimMismatch),
		sentinelHandler(domain.ErrInvalidTopK, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidEF, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrBatchTooLarge, http.StatusRequestEntityTooLarge, ErrorCodeBatchTooLarge),
		sentinelHandler(domain.ErrEmbeddingNotConfigured,
			http.StatusNotImplemented, ErrorCodeEmbeddingNotConfigured),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrNoShards, http.StatusServiceUnavailable, ErrorCodeNoShards),
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, ErrorCodeNotReady),
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.Healthz)
	r.Get("/readyz", s.Readyz)
	r.Get("/version", s.Version)

	r.Route("/api/v1/collections", func(r chi.Router) {
		r.Post("/", s.CreateCollection)
		r.Get("/", s.ListCollections)
		r.Route("/{collection}", func(r chi.Router) {
			r.Get("/", s.GetCollection)
			r.Delete("/", s.DeleteCollection)
			r.Get("/count", s.CountPoints)
			r.Post("/index", s.CreateFieldIndex)
			r.Delete("/index/{field}", s.DropFieldIndex)
			r.Put("/points", s.UpsertPoints)
			r.Post("/points/delete", s.DeletePoints)
			r.Post("/search", s.Search)
		})
	})
}

// CreateCollection handles POST /api/v1/collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "Collection name is required")
		return
	}

	metric, err := domain.ParseMetric(req.Metric)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	col, err := s.collections.Create(r.Context(), req.Name, req.Dim, metric)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, collectionToDTO(col))
}

// ListCollections handles GET /api/v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Items: names, Total: len(names)})
}

// GetCollection handles GET /api/v1/collections/{collection}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	col, err := s.collections.Describe(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := collectionToDTO(col)

	count, err := s.collections.Count(r.Context(), name)
	if err == nil {
		resp.Points = count
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteCollection handles DELETE /api/v1/collections/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Drop(r.Context(), chi.URLParam(r, "collection")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CountPoints handles GET /api/v1/collections/{collection}/count.
func (s *Server) CountPoints(w http.ResponseWriter, r *http.Request) {
	count, err := s.collections.Count(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// CreateFieldIndex handles POST /api/v1/collections/{collection}/index.
func (s *Server) CreateFieldIndex(w http.ResponseWriter, r *http.Request) {
	var req CreateIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	name := chi.URLParam(r, "collection")
	if err := s.collections.CreateFieldIndex(r.Context(), name, req.Field, req.Type); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DropFieldIndex handles DELETE /api/v1/collections/{collection}/index/{field}.
func (s *Server) DropFieldIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	field := chi.URLParam(r, "field")

	if err := s.collections.DropFieldIndex(r.Context(), name, field); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpsertPoints handles PUT /api/v1/collections/{collection}/points.
func (s *Server) UpsertPoints(w http.ResponseWriter, r *http.Request) {
	var req UpsertPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	points := make([]domain.Point, len(req.Points))
	for i, p := range req.Points {
		points[i] = domain.Point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	name := chi.URLParam(r, "collection")
	if err := s.points.Upsert(r.Context(), name, points); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UpsertPointsResponse{Upserted: len(points)})
}

// DeletePoints handles POST /api/v1/collections/{collection}/points/delete.
func (s *Server) DeletePoints(w http.ResponseWriter, r *http.Request) {
	var req DeletePointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	name := chi.URLParam(r, "collection")
	if err := s.points.Delete(r.Context(), name, req.IDs); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeletePointsResponse{Deleted: len(req.IDs)})
}

// Search handles POST /api/v1/collections/{collection}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	name := chi.URLParam(r, "collection")
	results, err := s.search.Search(r.Context(), name, domain.SearchRequest{
		Vector:         req.Vector,
		Text:           req.Text,
		TopK:           req.TopK,
		EF:             req.EF,
		IncludeVectors: req.IncludeVectors,
		Filter:         req.Filter,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToDTO(&results[i])
	}

	writeJSON(w, http.StatusOK, SearchResponse{Items: items, Total: len(items)})
}

// Healthz handles GET /healthz. Reports process liveness only.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz handles GET /readyz. Reports whether the cluster can serve traffic.
func (s *Server) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ready(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Version handles GET /version.
func (s *Server) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: version.Version,
		Commit:  version.Commit,
		Date:    version.Date,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrDimMismatch,
		domain.ErrInvalidTopK,
		domain.ErrInvalidEF,
		domain.ErrInvalidSchema,
		domain.ErrBatchTooLarge,
		domain.ErrEmbeddingNotConfigured,
		domain.ErrEmbeddingProviderError,
		domain.ErrNoShards,
		domain.ErrShardUnavailable,
		domain.ErrNotReady,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// shardErrorHandler handles downstream shard failures with the failed address attached.
func shardErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrShardUnavailable) {
		return false
	}
	var se *domain.ShardError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"code":    ErrorCodeShardUnavailable,
			"message": msg,
			"shard":   se.Addr,
		})
		return true
	}
	writeError(w, http.StatusBadGateway, ErrorCodeShardUnavailable, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func collectionToDTO(c domain.Collection) CollectionResponse {
	resp := CollectionResponse{
		Name:   c.Name,
		Dim:    c.Dim,
		Metric: string(c.Metric),
	}
	if c.Points >= 0 {
		resp.Points = c.Points
	}
	return resp
}

func searchResultToDTO(r *domain.SearchResult) SearchResultItem {
	item := SearchResultItem{
		ID:    r.ID,
		Score: r.Score,
	}
	if len(r.Payload) > 0 {
		item.Payload = r.Payload
	}
	if len(r.Vector) > 0 {
		item.Vector = r.Vector
	}
	return item
}
