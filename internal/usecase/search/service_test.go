package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kailas-cloud/vecshard/internal/domain"
	"github.com/kailas-cloud/vecshard/internal/engine"
)

// shardStub implements engine.Engine, returning canned search results.
type shardStub struct {
	addr    string
	results []domain.SearchResult
	err     error
	delay   time.Duration

	mu       sync.Mutex
	lastReq  domain.SearchRequest
	searched bool
}

func (s *shardStub) Addr() string                                              { return s.addr }
func (s *shardStub) Ping(context.Context) error                                { return nil }
func (s *shardStub) WaitForReady(context.Context, time.Duration) error         { return nil }
func (s *shardStub) CreateCollection(context.Context, domain.Collection) error { return nil }
func (s *shardStub) DropCollection(context.Context, string) error              { return nil }
func (s *shardStub) HasCollection(context.Context, string) (bool, error)       { return true, nil }
func (s *shardStub) DescribeCollection(context.Context, string) (domain.Collection, error) {
	return domain.Collection{}, nil
}
func (s *shardStub) ListCollections(context.Context) ([]string, error)              { return nil, nil }
func (s *shardStub) CountPoints(context.Context, string) (int64, error)             { return 0, nil }
func (s *shardStub) CreateFieldIndex(context.Context, string, string, string) error { return nil }
func (s *shardStub) DropFieldIndex(context.Context, string, string) error           { return nil }
func (s *shardStub) Upsert(context.Context, string, []domain.Point) error           { return nil }
func (s *shardStub) DeletePoints(context.Context, string, []string) error           { return nil }
func (s *shardStub) Close() error                                                   { return nil }

func (s *shardStub) Search(_ context.Context, _ string, req domain.SearchRequest) ([]domain.SearchResult, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.lastReq = req
	s.searched = true
	s.mu.Unlock()
	return s.results, s.err
}

type stubRouter struct {
	shards []engine.Engine
	err    error
}

func (r *stubRouter) Route(context.Context, string) ([]engine.Engine, error) {
	return r.shards, r.err
}

type stubColls struct {
	col domain.Collection
	err error
}

func (c *stubColls) Describe(context.Context, string) (domain.Collection, error) {
	return c.col, c.err
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (e *stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: e.vec, TotalTokens: 3}, e.err
}

func newService(router Router, colls CollectionReader) *Service {
	return New(router, colls, noop.NewTracerProvider().Tracer("test"), Limits{})
}

func l2Collection() domain.Collection {
	return domain.Collection{Name: "movies", Dim: 2, Metric: domain.MetricL2}
}

func TestSearch_MergesAcrossShards(t *testing.T) {
	ro1 := &shardStub{addr: "ro1:6334", results: []domain.SearchResult{
		{ID: "a", Score: 0.1}, {ID: "b", Score: 0.8},
	}}
	ro2 := &shardStub{addr: "ro2:6334", results: []domain.SearchResult{
		{ID: "c", Score: 0.3},
	}}
	svc := newService(&stubRouter{shards: []engine.Engine{ro1, ro2}}, &stubColls{col: l2Collection()})

	got, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Vector: []float32{1, 2}, TopK: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("unexpected merge %v", got)
	}
	if !ro1.searched || !ro2.searched {
		t.Error("not all shards were queried")
	}
}

func TestSearch_DescendingForIP(t *testing.T) {
	ro1 := &shardStub{addr: "ro1:6334", results: []domain.SearchResult{{ID: "low", Score: 0.2}}}
	ro2 := &shardStub{addr: "ro2:6334", results: []domain.SearchResult{{ID: "high", Score: 0.9}}}
	col := domain.Collection{Name: "movies", Dim: 2, Metric: domain.MetricIP}
	svc := newService(&stubRouter{shards: []engine.Engine{ro1, ro2}}, &stubColls{col: col})

	got, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Vector: []float32{1, 2}, TopK: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].ID != "high" {
		t.Errorf("IP metric must rank high scores first, got %v", got)
	}
}

func TestSearch_TopKBounds(t *testing.T) {
	svc := newService(&stubRouter{}, &stubColls{col: l2Collection()})

	for _, topk := range []int{0, -5, 4096} {
		_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
			Vector: []float32{1, 2}, TopK: topk,
		})
		if !errors.Is(err, domain.ErrInvalidTopK) {
			t.Errorf("topk=%d: expected ErrInvalidTopK, got %v", topk, err)
		}
	}
}

func TestSearch_EFBounds(t *testing.T) {
	svc := newService(&stubRouter{}, &stubColls{col: l2Collection()})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Vector: []float32{1, 2}, TopK: 1, EF: 100000,
	})
	if !errors.Is(err, domain.ErrInvalidEF) {
		t.Errorf("expected ErrInvalidEF, got %v", err)
	}
}

func TestSearch_EFClampedToTopK(t *testing.T) {
	ro1 := &shardStub{addr: "ro1:6334"}
	svc := newService(&stubRouter{shards: []engine.Engine{ro1}}, &stubColls{col: l2Collection()})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Vector: []float32{1, 2}, TopK: 100, EF: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ro1.mu.Lock()
	defer ro1.mu.Unlock()
	if ro1.lastReq.EF != 100 {
		t.Errorf("expected ef clamped to topk 100, got %d", ro1.lastReq.EF)
	}
}

func TestSearch_DimMismatch(t *testing.T) {
	svc := newService(&stubRouter{}, &stubColls{col: l2Collection()})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Vector: []float32{1, 2, 3}, TopK: 1,
	})
	if !errors.Is(err, domain.ErrDimMismatch) {
		t.Errorf("expected ErrDimMismatch, got %v", err)
	}
}

func TestSearch_ShardFailureFailsSearch(t *testing.T) {
	ro1 := &shardStub{addr: "ro1:6334", results: []domain.SearchResult{{ID: "a", Score: 0.1}}}
	ro2 := &shardStub{addr: "ro2:6334", err: domain.NewShardError("ro2:6334", errors.New("down"))}
	svc := newService(&stubRouter{shards: []engine.Engine{ro1, ro2}}, &stubColls{col: l2Collection()})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Vector: []float32{1, 2}, TopK: 1,
	})
	if !errors.Is(err, domain.ErrShardUnavailable) {
		t.Errorf("expected ErrShardUnavailable, got %v", err)
	}
}

func TestSearch_TextWithoutEmbedder(t *testing.T) {
	svc := newService(&stubRouter{}, &stubColls{col: l2Collection()})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Text: "noir detective films", TopK: 1,
	})
	if !errors.Is(err, domain.ErrEmbeddingNotConfigured) {
		t.Errorf("expected ErrEmbeddingNotConfigured, got %v", err)
	}
}

func TestSearch_TextQueryEmbedded(t *testing.T) {
	ro1 := &shardStub{addr: "ro1:6334", results: []domain.SearchResult{{ID: "a", Score: 0.1}}}
	svc := newService(&stubRouter{shards: []engine.Engine{ro1}}, &stubColls{col: l2Collection()}).
		WithEmbedder(&stubEmbedder{vec: []float32{0.5, 0.5}})

	got, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Text: "noir detective films", TopK: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}

	ro1.mu.Lock()
	defer ro1.mu.Unlock()
	if len(ro1.lastReq.Vector) != 2 {
		t.Errorf("shard did not receive the embedded vector: %v", ro1.lastReq.Vector)
	}
}

func TestSearch_EmbedderFailure(t *testing.T) {
	svc := newService(&stubRouter{}, &stubColls{col: l2Collection()}).
		WithEmbedder(&stubEmbedder{err: errors.New("quota")})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Text: "anything", TopK: 1,
	})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestSearch_NoVectorNoText(t *testing.T) {
	svc := newService(&stubRouter{}, &stubColls{col: l2Collection()})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{TopK: 1})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestSearch_RouterFailure(t *testing.T) {
	svc := newService(&stubRouter{err: domain.ErrNoShards}, &stubColls{col: l2Collection()})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Vector: []float32{1, 2}, TopK: 1,
	})
	if !errors.Is(err, domain.ErrNoShards) {
		t.Errorf("expected ErrNoShards, got %v", err)
	}
}

func TestSearch_DefaultEFApplied(t *testing.T) {
	ro1 := &shardStub{addr: "ro1:6334"}
	svc := New(&stubRouter{shards: []engine.Engine{ro1}}, &stubColls{col: l2Collection()},
		noop.NewTracerProvider().Tracer("test"), Limits{DefaultEF: 128})

	_, err := svc.Search(context.Background(), "movies", domain.SearchRequest{
		Vector: []float32{1, 2}, TopK: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ro1.mu.Lock()
	defer ro1.mu.Unlock()
	if ro1.lastReq.EF != 128 {
		t.Errorf("expected default ef 128 forwarded, got %d", ro1.lastReq.EF)
	}
}
