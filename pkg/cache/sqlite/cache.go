package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/folio/pkg/models"
)

// Cache is an answer cache backed by SQLite.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS answer_cache (
	cache_key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at INTEGER NOT NULL
);
`

// New creates a Cache with the given database path and default TTL.
func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Get retrieves a cached answer. Expired entries are reported as misses.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM answer_cache WHERE cache_key = ?`, key,
	).Scan(&value, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return "", false, fmt.Errorf("cache get: %w", err)
	}

	if time.Now().UnixNano() >= expiresAt {
		c.misses.Add(1)
		return "", false, nil
	}

	c.hits.Add(1)
	return value, true, nil
}

// Set stores an answer. A non-positive ttl uses the cache default.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := time.Now()
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO answer_cache (cache_key, value, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		key, value, now.UTC(), now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Stats returns cache performance metrics.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM answer_cache WHERE expires_at > ?`, time.Now().UnixNano(),
	).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Flush removes every entry.
func (c *Cache) Flush(ctx context.Context) error {
	return c.Clear(ctx, false)
}

// Clear removes cache entries. If expiredOnly is true, only expired entries are removed.
func (c *Cache) Clear(ctx context.Context, expiredOnly bool) error {
	var err error
	if expiredOnly {
		_, err = c.db.ExecContext(ctx, `DELETE FROM answer_cache WHERE expires_at <= ?`, time.Now().UnixNano())
	} else {
		_, err = c.db.ExecContext(ctx, `DELETE FROM answer_cache`)
	}
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
