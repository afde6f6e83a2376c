// Package cluster tracks the engine topology: one writable node plus the
// read-only shard pool fed by discovery. All routing decisions happen here.
package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecshard/internal/discovery"
	"github.com/kailas-cloud/vecshard/internal/domain"
	"github.com/kailas-cloud/vecshard/internal/engine"
	"github.com/kailas-cloud/vecshard/internal/meta"
	"github.com/kailas-cloud/vecshard/internal/metrics"
)

type member struct {
	eng     engine.Engine // nil until the address dials successfully
	healthy bool
}

// Cluster is the routing view over the engine nodes.
type Cluster struct {
	dial      engine.Dialer
	placement meta.PlacementStore
	logger    *zap.Logger

	writer engine.Engine

	mu      sync.RWMutex
	readers map[string]*member
}

// New dials the writable node and the initial read-shard set.
// Read shards that fail to dial are kept as unhealthy members and retried by
// the health loop; a failing writer is fatal.
func New(dial engine.Dialer, woserver string, provider discovery.Provider,
	placement meta.PlacementStore, logger *zap.Logger) (*Cluster, error) {

	writer, err := dial(woserver)
	if err != nil {
		return nil, fmt.Errorf("dial writer %s: %w", woserver, err)
	}

	c := &Cluster{
		dial:      dial,
		placement: placement,
		logger:    logger,
		writer:    writer,
		readers:   make(map[string]*member),
	}
	c.applyHosts(provider.Hosts())
	return c, nil
}

// Writer returns the writable node.
func (c *Cluster) Writer() engine.Engine { return c.writer }

// Readers returns a snapshot of healthy read shards. When none are
// configured the writer serves reads too (the single-node demo topology).
func (c *Cluster) Readers() []engine.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]engine.Engine, 0, len(c.readers))
	for _, m := range c.readers {
		if m.healthy {
			out = append(out, m.eng)
		}
	}
	if len(out) == 0 && len(c.readers) == 0 {
		return []engine.Engine{c.writer}
	}
	return out
}

// Route resolves the shard set for a collection. Placement pins narrow the
// set; collections without pins fan out to every healthy reader.
func (c *Cluster) Route(ctx context.Context, collection string) ([]engine.Engine, error) {
	readers := c.Readers()
	if len(readers) == 0 {
		return nil, domain.ErrNoShards
	}

	pinned, err := c.placement.Shards(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("placement lookup for %q: %w", collection, err)
	}
	if len(pinned) == 0 {
		return readers, nil
	}

	byAddr := make(map[string]engine.Engine, len(readers))
	for _, r := range readers {
		byAddr[r.Addr()] = r
	}
	out := make([]engine.Engine, 0, len(pinned))
	for _, addr := range pinned {
		if eng, ok := byAddr[addr]; ok {
			out = append(out, eng)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no healthy shard among pins %v", domain.ErrNoShards, pinned)
	}
	return out, nil
}

// Run consumes discovery updates and drives the health loop until ctx ends.
func (c *Cluster) Run(ctx context.Context, provider discovery.Provider, healthInterval time.Duration) {
	updates := provider.Watch(ctx)
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case hosts, ok := <-updates:
			if !ok {
				updates = nil // provider closed; keep health checking
				continue
			}
			c.applyHosts(hosts)
		case <-ticker.C:
			c.checkHealth(ctx)
		}
	}
}

// applyHosts reconciles the reader pool with a new membership list.
// In-flight searches hold their own engine snapshots and are unaffected.
func (c *Cluster) applyHosts(hosts []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		next[h] = struct{}{}
	}

	for addr, m := range c.readers {
		if _, keep := next[addr]; !keep {
			c.logger.Info("shard removed", zap.String("addr", addr))
			if m.eng != nil {
				_ = m.eng.Close()
			}
			delete(c.readers, addr)
		}
	}

	for addr := range next {
		if _, exists := c.readers[addr]; exists {
			continue
		}
		eng, err := c.dial(addr)
		if err != nil {
			c.logger.Warn("shard dial failed, will retry",
				zap.String("addr", addr), zap.Error(err))
			c.readers[addr] = &member{}
			continue
		}
		c.logger.Info("shard added", zap.String("addr", addr))
		c.readers[addr] = &member{eng: eng, healthy: true}
	}

	metrics.SetDiscoveredShards(len(c.readers))
}

// checkHealth pings every reader and flips health flags on transitions.
// Members that never dialed are redialed here.
func (c *Cluster) checkHealth(ctx context.Context) {
	c.mu.RLock()
	members := make(map[string]*member, len(c.readers))
	for addr, m := range c.readers {
		members[addr] = m
	}
	c.mu.RUnlock()

	for addr, m := range members {
		if m.eng == nil {
			c.redial(addr, m)
			continue
		}
		err := m.eng.Ping(ctx)

		c.mu.Lock()
		switch {
		case err != nil && m.healthy:
			c.logger.Warn("shard unhealthy", zap.String("addr", addr), zap.Error(err))
			m.healthy = false
		case err == nil && !m.healthy:
			c.logger.Info("shard recovered", zap.String("addr", addr))
			m.healthy = true
		}
		c.mu.Unlock()
	}
}

// redial retries a member whose initial dial failed. Membership may have
// changed while dialing, so the slot is checked before the engine is kept.
func (c *Cluster) redial(addr string, m *member) {
	eng, err := c.dial(addr)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.readers[addr]; !ok || cur != m {
		_ = eng.Close()
		return
	}
	c.logger.Info("shard added", zap.String("addr", addr))
	m.eng = eng
	m.healthy = true
}

// HealthyReaderCount reports how many read shards currently pass health checks.
func (c *Cluster) HealthyReaderCount() int {
	healthy, _ := c.ReaderCounts()
	return healthy
}

// ReaderCounts reports healthy and total read-shard counts.
func (c *Cluster) ReaderCounts() (healthy, total int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.readers {
		total++
		if m.healthy {
			healthy++
		}
	}
	return healthy, total
}

// PingWriter checks the writable node.
func (c *Cluster) PingWriter(ctx context.Context) error {
	return c.writer.Ping(ctx)
}

// WaitForReady is the startup gate: the writable engine must answer before
// the middleware starts serving. Read shards are waited for best-effort so a
// slow replica does not block boot.
func (c *Cluster) WaitForReady(ctx context.Context, timeout time.Duration) error {
	if err := c.writer.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("%w: writer: %v", domain.ErrNotReady, err)
	}
	if err := c.placement.Ping(ctx); err != nil {
		return fmt.Errorf("%w: placement store: %v", domain.ErrNotReady, err)
	}
	return nil
}

// Close shuts down every connection.
func (c *Cluster) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.readers {
		if m.eng != nil {
			_ = m.eng.Close()
		}
	}
	c.readers = map[string]*member{}
	_ = c.writer.Close()
}

// WaitForTCP blocks until addr accepts a TCP connection or the timeout
// passes. Used at startup to honor the dependency ordering on the tracing
// collector.
func WaitForTCP(ctx context.Context, addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("%s not reachable after %s: %w", addr, timeout, lastErr)
}
