// Package meta reads collection placement from the sqlite metadata database
// on the shared volume. Deployment tooling that pins collections to a subset
// of read shards writes rows here; collections without rows broadcast to
// every shard.
package meta

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	// SQLite driver.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS placements (
	collection TEXT NOT NULL,
	shard_addr TEXT NOT NULL,
	PRIMARY KEY (collection, shard_addr)
);`

// PlacementStore resolves which shards hold a collection.
type PlacementStore interface {
	// Shards returns the pinned shard addresses for a collection.
	// An empty slice means no pin: route to all shards.
	Shards(ctx context.Context, collection string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// SQLiteStore is a read-mostly placement store with a TTL cache in front.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	shards  []string
	expires time.Time
}

// Open opens (and if needed initializes) the placement database.
func Open(path string, cacheTTL time.Duration) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open placement db %s: %w", path, err)
	}
	// Single connection: the middleware only reads, and SQLite dislikes
	// concurrent writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init placement schema: %w", err)
	}

	return &SQLiteStore{
		db:    db,
		ttl:   cacheTTL,
		cache: make(map[string]cacheEntry),
	}, nil
}

// Shards implements PlacementStore.
func (s *SQLiteStore) Shards(ctx context.Context, collection string) ([]string, error) {
	s.mu.Lock()
	if e, ok := s.cache[collection]; ok && time.Now().Before(e.expires) {
		shards := append([]string(nil), e.shards...)
		s.mu.Unlock()
		return shards, nil
	}
	s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT shard_addr FROM placements WHERE collection = ? ORDER BY shard_addr`, collection)
	if err != nil {
		return nil, fmt.Errorf("query placements for %q: %w", collection, err)
	}
	defer rows.Close()

	var shards []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan placement row: %w", err)
		}
		shards = append(shards, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read placements for %q: %w", collection, err)
	}

	s.mu.Lock()
	s.cache[collection] = cacheEntry{shards: shards, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return append([]string(nil), shards...), nil
}

// Pin records a placement row. Used by deployment tooling and tests; the
// serving path never writes.
func (s *SQLiteStore) Pin(ctx context.Context, collection, shardAddr string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO placements (collection, shard_addr) VALUES (?, ?)`,
		collection, shardAddr)
	if err != nil {
		return fmt.Errorf("pin %q to %q: %w", collection, shardAddr, err)
	}
	s.invalidate(collection)
	return nil
}

// Unpin removes all placement rows for a collection.
func (s *SQLiteStore) Unpin(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM placements WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("unpin %q: %w", collection, err)
	}
	s.invalidate(collection)
	return nil
}

// Ping implements PlacementStore.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements PlacementStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) invalidate(collection string) {
	s.mu.Lock()
	delete(s.cache, collection)
	s.mu.Unlock()
}

// Broadcast is the no-placement store: every collection routes to all shards.
type Broadcast struct{}

// Shards implements PlacementStore.
func (Broadcast) Shards(context.Context, string) ([]string, error) { return nil, nil }

// Ping implements PlacementStore.
func (Broadcast) Ping(context.Context) error { return nil }

// Close implements PlacementStore.
func (Broadcast) Close() error { return nil }
