// Package search implements the scatter-gather search path: route, fan out
// to shards, merge per-shard top-k into a global top-k.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecshard/internal/domain"
	"github.com/kailas-cloud/vecshard/internal/engine"
	"github.com/kailas-cloud/vecshard/internal/logger"
	"github.com/kailas-cloud/vecshard/internal/metrics"
)

// Service executes sharded searches.
type Service struct {
	router Router
	colls  CollectionReader
	embed  domain.Embedder // nil when text queries are not configured
	tracer trace.Tracer
	limits Limits
}

// New creates a search service.
func New(router Router, colls CollectionReader, tracer trace.Tracer, limits Limits) *Service {
	limits.ApplyDefaults()
	return &Service{router: router, colls: colls, tracer: tracer, limits: limits}
}

// WithEmbedder enables text queries through the given vectorizer.
func (s *Service) WithEmbedder(embed domain.Embedder) *Service {
	s.embed = embed
	return s
}

// Search runs one query against all shards holding the collection and merges
// the per-shard top-k lists into a global top-k.
func (s *Service) Search(ctx context.Context, collection string, req domain.SearchRequest) ([]domain.SearchResult, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	col, err := s.colls.Describe(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("resolve collection: %w", err)
	}

	if err := s.resolveVector(ctx, col, &req); err != nil {
		return nil, err
	}

	routeCtx, routeSpan := s.tracer.Start(ctx, "get_routing")
	shards, err := s.router.Route(routeCtx, collection)
	routeSpan.End()
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", collection, err)
	}

	perShard, err := s.scatter(ctx, collection, req, shards)
	if err != nil {
		return nil, err
	}

	_, mergeSpan := s.tracer.Start(ctx, "merge")
	start := time.Now()
	merged := mergeTopK(perShard, req.TopK, col.Metric.Descending())
	metrics.ObserveMerge(time.Since(start), len(shards))
	mergeSpan.SetAttributes(attribute.Int("fanout", len(shards)))
	mergeSpan.End()

	logger.FromContext(ctx).Debug("search merged",
		zap.String("collection", collection),
		zap.Int("fanout", len(shards)),
		zap.Int("results", len(merged)),
	)
	return merged, nil
}

func (s *Service) validate(req *domain.SearchRequest) error {
	if req.TopK <= 0 || req.TopK > s.limits.MaxTopK {
		return fmt.Errorf("%w: %d not in [1, %d]", domain.ErrInvalidTopK, req.TopK, s.limits.MaxTopK)
	}
	if req.EF == 0 {
		req.EF = s.limits.DefaultEF
	}
	if req.EF > 0 && req.EF < req.TopK {
		// ef below topk reads fewer candidates than results requested.
		req.EF = req.TopK
	}
	if req.EF < 0 || req.EF > s.limits.MaxEF {
		return fmt.Errorf("%w: %d not in [0, %d]", domain.ErrInvalidEF, req.EF, s.limits.MaxEF)
	}
	if len(req.Vector) == 0 && req.Text == "" {
		return fmt.Errorf("%w: neither vector nor text given", domain.ErrInvalidSchema)
	}
	return nil
}

// resolveVector fills req.Vector from the text query when needed and checks
// the dimension before any shard RPC.
func (s *Service) resolveVector(ctx context.Context, col domain.Collection, req *domain.SearchRequest) error {
	if len(req.Vector) == 0 {
		if s.embed == nil {
			return domain.ErrEmbeddingNotConfigured
		}
		embCtx, span := s.tracer.Start(ctx, "embed_query")
		res, err := s.embed.Embed(embCtx, req.Text)
		span.End()
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrEmbeddingProviderError, err)
		}
		req.Vector = res.Embedding
	}
	if len(req.Vector) != col.Dim {
		return fmt.Errorf("%w: collection %q expects dim %d, got %d",
			domain.ErrDimMismatch, col.Name, col.Dim, len(req.Vector))
	}
	return nil
}

// scatter queries every shard concurrently. Any shard failure fails the
// search: merging partial results would silently drop hits.
func (s *Service) scatter(ctx context.Context, collection string, req domain.SearchRequest,
	shards []engine.Engine) ([][]domain.SearchResult, error) {

	perShard := make([][]domain.SearchResult, len(shards))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limits.MaxFanout)

	for i, shard := range shards {
		g.Go(func() error {
			spanCtx, span := s.tracer.Start(gctx, "search "+shard.Addr(),
				trace.WithAttributes(attribute.String("shard", shard.Addr())))
			start := time.Now()

			results, err := shard.Search(spanCtx, collection, req)

			metrics.ObserveShardSearch(shard.Addr(), time.Since(start), err)
			span.End()
			if err != nil {
				return fmt.Errorf("search shard %s: %w", shard.Addr(), err)
			}

			mu.Lock()
			perShard[i] = results
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perShard, nil
}
