package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecshard/internal/cluster"
	"github.com/kailas-cloud/vecshard/internal/config"
	"github.com/kailas-cloud/vecshard/internal/discovery"
	"github.com/kailas-cloud/vecshard/internal/engine/qdrant"
	logpkg "github.com/kailas-cloud/vecshard/internal/logger"
	"github.com/kailas-cloud/vecshard/internal/meta"
	"github.com/kailas-cloud/vecshard/internal/metrics"
	"github.com/kailas-cloud/vecshard/internal/telemetry"
	chiTransport "github.com/kailas-cloud/vecshard/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/vecshard/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/vecshard/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/vecshard/internal/usecase/health"
	pointuc "github.com/kailas-cloud/vecshard/internal/usecase/point"
	searchuc "github.com/kailas-cloud/vecshard/internal/usecase/search"
	"github.com/kailas-cloud/vecshard/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecshard middleware",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("woserver", cfg.Cluster.WOServer),
		zap.String("discovery", cfg.Cluster.Discovery),
		zap.String("tracing", cfg.Tracing.Type),
	)

	ctx := context.Background()

	// The collector is a declared startup dependency when tracing is on.
	if cfg.Tracing.Enabled() {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := cluster.WaitForTCP(waitCtx, cfg.Tracing.Endpoint(), 30*time.Second); err != nil {
			logger.Warn("Tracing collector not reachable, spans will be dropped until it is",
				zap.String("endpoint", cfg.Tracing.Endpoint()), zap.Error(err))
		}
		cancel()
	}

	tp, err := telemetry.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("Tracing shutdown error", zap.Error(err))
		}
	}()

	// Placement store on the shared volume; without one every collection
	// routes to all shards.
	var placement meta.PlacementStore = meta.Broadcast{}
	if cfg.Meta.PlacementDB != "" {
		store, err := meta.Open(cfg.Meta.PlacementDB, time.Duration(cfg.Meta.CacheTTLSec)*time.Second)
		if err != nil {
			logger.Fatal("Failed to open placement store",
				zap.String("path", cfg.Meta.PlacementDB), zap.Error(err))
		}
		placement = store
	}
	defer placement.Close()

	// Shard discovery
	var provider discovery.Provider
	switch cfg.Cluster.Discovery {
	case "file":
		provider, err = discovery.NewFile(cfg.Cluster.HostsFile, logger)
		if err != nil {
			logger.Fatal("Failed to open hosts file", zap.Error(err))
		}
	default:
		provider = discovery.NewStatic(cfg.Cluster.StaticHostList())
	}

	dial := qdrant.NewDialer(qdrant.Config{
		DialTimeout:    time.Duration(cfg.Cluster.DialTimeoutSec) * time.Second,
		RequestTimeout: time.Duration(cfg.Cluster.RequestTimeoutSec) * time.Second,
		UseTLS:         cfg.Cluster.UseTLS,
	}, logger)

	cl, err := cluster.New(dial, cfg.Cluster.WOServer, provider, placement, logger)
	if err != nil {
		logger.Fatal("Failed to connect to cluster", zap.Error(err))
	}
	defer cl.Close()

	readinessTimeout := time.Duration(cfg.Cluster.ReadinessTimeoutSec) * time.Second
	if err := cl.WaitForReady(ctx, readinessTimeout); err != nil {
		logger.Fatal("Cluster not ready", zap.Error(err))
	}
	logger.Info("Connected to cluster")

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go cl.Run(runCtx, provider, time.Duration(cfg.Cluster.HealthIntervalSec)*time.Second)

	// Create use case services
	collSvc := collectionuc.New(cl.Writer())
	pointSvc := pointuc.New(cl.Writer(), collSvc).
		WithMaxBatchSize(cfg.Search.MaxBatchSize)
	searchSvc := searchuc.New(cl, collSvc, tp.Tracer(), searchuc.Limits{
		MaxTopK:   cfg.Search.MaxTopK,
		MaxEF:     cfg.Search.MaxEF,
		DefaultEF: cfg.Search.DefaultEF,
		MaxFanout: cfg.Search.MaxFanout,
	})
	if cfg.Embedding.Provider != "" {
		searchSvc = searchSvc.WithEmbedder(openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		}))
		logger.Info("Text queries enabled",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
		)
	}
	healthSvc := healthuc.New(cl, placement)

	// Create chi server
	server := chiTransport.NewServer(collSvc, pointSvc, searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(telemetry.Middleware(tp.Tracer()))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Metrics on a separate listener so it is never published with the API port.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	metricsSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting metrics server", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during metrics shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWith(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
