// Package metrics holds the prometheus collectors for the middleware.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecshard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecshard",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	shardSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecshard",
			Name:      "shard_search_duration_seconds",
			Help:      "Per-shard search RPC duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"shard"},
	)

	shardErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecshard",
			Name:      "shard_errors_total",
			Help:      "Downstream shard failures",
		},
		[]string{"shard"},
	)

	mergeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vecshard",
			Name:      "merge_duration_seconds",
			Help:      "Top-k merge duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	searchFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vecshard",
			Name:      "search_fanout_shards",
			Help:      "Number of shards queried per search",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)

	embeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecshard",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	embeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecshard",
			Name:      "embedding_requests_total",
			Help:      "Total embedding API requests",
		},
		[]string{"provider", "model", "status"},
	)

	embeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecshard",
			Name:      "embedding_tokens_total",
			Help:      "Tokens consumed by embedding requests",
		},
		[]string{"provider", "model"},
	)

	discoveredShards = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vecshard",
			Name:      "discovered_shards",
			Help:      "Read shards currently in the pool",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestsTotal,
		shardSearchDuration,
		shardErrorsTotal,
		mergeDuration,
		searchFanout,
		embeddingRequestDuration,
		embeddingRequestsTotal,
		embeddingTokensTotal,
		discoveredShards,
	)
}

// ObserveShardSearch records one per-shard search RPC.
func ObserveShardSearch(shard string, d time.Duration, err error) {
	shardSearchDuration.WithLabelValues(shard).Observe(d.Seconds())
	if err != nil {
		shardErrorsTotal.WithLabelValues(shard).Inc()
	}
}

// ObserveMerge records one top-k merge.
func ObserveMerge(d time.Duration, fanout int) {
	mergeDuration.Observe(d.Seconds())
	searchFanout.Observe(float64(fanout))
}

// ObserveEmbedding records one embedding API request.
func ObserveEmbedding(provider, model string, d time.Duration, tokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	embeddingRequestsTotal.WithLabelValues(provider, model, status).Inc()
	embeddingRequestDuration.WithLabelValues(provider, model).Observe(d.Seconds())
	if tokens > 0 {
		embeddingTokensTotal.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// SetDiscoveredShards publishes the current pool size.
func SetDiscoveredShards(n int) {
	discoveredShards.Set(float64(n))
}

// Middleware records HTTP request duration and count.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(ww.status)

			// Use chi route pattern for path normalization
			routePattern := chi.RouteContext(r.Context()).RoutePattern()
			path := routePattern
			if path == "" {
				path = "unknown"
			}

			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}
