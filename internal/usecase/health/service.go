// Package health implements liveness and readiness for the middleware.
// Readiness mirrors the deployment ordering: the writable engine and the
// placement store must answer, and configured read shards must not all be
// down.
package health

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

// ClusterProbe is the cluster view the health service needs.
type ClusterProbe interface {
	PingWriter(ctx context.Context) error
	ReaderCounts() (healthy, total int)
}

// PlacementProbe checks the placement store.
type PlacementProbe interface {
	Ping(ctx context.Context) error
}

// Service answers health checks.
type Service struct {
	cluster   ClusterProbe
	placement PlacementProbe
}

// New creates a health service.
func New(cluster ClusterProbe, placement PlacementProbe) *Service {
	return &Service{cluster: cluster, placement: placement}
}

// Ready returns nil when the middleware can serve traffic.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.cluster.PingWriter(ctx); err != nil {
		return fmt.Errorf("%w: writer: %v", domain.ErrNotReady, err)
	}
	if err := s.placement.Ping(ctx); err != nil {
		return fmt.Errorf("%w: placement store: %v", domain.ErrNotReady, err)
	}
	healthy, total := s.cluster.ReaderCounts()
	if total > 0 && healthy == 0 {
		return fmt.Errorf("%w: 0 of %d read shards healthy", domain.ErrNotReady, total)
	}
	return nil
}
