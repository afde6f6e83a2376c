package qdrant

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

func TestSplitAddr(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"engine:6334", "engine", 6334, false},
		{"tcp://engine:6334", "engine", 6334, false},
		{" tcp://10.0.0.5:19530 ", "10.0.0.5", 19530, false},
		{"engine", "", 0, true},
		{"engine:notaport", "", 0, true},
		{"engine:0", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, port, err := splitAddr(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got %s:%d, want %s:%d", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"not found", status.Error(codes.NotFound, "no collection"), domain.ErrNotFound},
		{"already exists", status.Error(codes.AlreadyExists, "dup"), domain.ErrAlreadyExists},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad dim"), domain.ErrInvalidSchema},
		{"unavailable", status.Error(codes.Unavailable, "down"), domain.ErrShardUnavailable},
		{"plain error", errors.New("boom"), domain.ErrShardUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr("ro1:6334", tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("mapErr(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapErr_KeepsShardAddr(t *testing.T) {
	err := mapErr("ro2:6334", status.Error(codes.Unavailable, "down"))
	var shardErr *domain.ShardError
	if !errors.As(err, &shardErr) {
		t.Fatalf("expected ShardError, got %T", err)
	}
	if shardErr.Addr != "ro2:6334" {
		t.Errorf("unexpected addr %q", shardErr.Addr)
	}
}

func TestDistanceRoundTrip(t *testing.T) {
	for _, m := range []domain.Metric{domain.MetricL2, domain.MetricIP, domain.MetricCosine} {
		if got := fromDistance(toDistance(m)); got != m {
			t.Errorf("round trip for %q gave %q", m, got)
		}
	}
}

func TestPointIDRoundTrip(t *testing.T) {
	if id := toPointID("42"); id.GetNum() != 42 {
		t.Errorf("numeric id not kept numeric: %v", id)
	}
	if id := toPointID("4b3a6a0e-8b9d-4f5e-9a7c-1d2e3f405162"); id.GetUuid() == "" {
		t.Errorf("uuid id not kept as uuid: %v", id)
	}
	if got := fromPointID(toPointID("42")); got != "42" {
		t.Errorf("round trip gave %q", got)
	}
}

func TestToPointID_FreeFormString(t *testing.T) {
	id := toPointID("movie-1")
	if id.GetUuid() == "" {
		t.Fatalf("free-form id must map to a uuid: %v", id)
	}
	if _, err := uuid.Parse(id.GetUuid()); err != nil {
		t.Errorf("derived id %q is not a valid uuid: %v", id.GetUuid(), err)
	}
	if again := toPointID("movie-1"); again.GetUuid() != id.GetUuid() {
		t.Error("derived uuid must be deterministic")
	}
	if other := toPointID("movie-2"); other.GetUuid() == id.GetUuid() {
		t.Error("distinct ids collided")
	}
}

func TestToFilter(t *testing.T) {
	if toFilter(nil) != nil {
		t.Error("empty condition map should produce nil filter")
	}

	f := toFilter(map[string]any{"env": "prod", "replica": int64(3), "live": true})
	if len(f.Must) != 3 {
		t.Fatalf("expected 3 must conditions, got %d", len(f.Must))
	}
}

func TestFromScoredPoint(t *testing.T) {
	sp := &qdrant.ScoredPoint{
		Id:    qdrant.NewIDNum(7),
		Score: 0.25,
		Payload: map[string]*qdrant.Value{
			"tag": {Kind: &qdrant.Value_StringValue{StringValue: "a"}},
		},
	}
	res := fromScoredPoint(sp)
	if res.ID != "7" || res.Score != 0.25 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Payload["tag"] != "a" {
		t.Errorf("payload not converted: %+v", res.Payload)
	}
	if res.Vector != nil {
		t.Error("vector should be nil when not returned")
	}
}
