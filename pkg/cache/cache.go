// Package cache defines the answer cache contract shared by the chat
// orchestrator, ingestion and the CLI.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/pario-ai/folio/pkg/models"
)

// DefaultTTL is how long a generated answer stays cached.
const DefaultTTL = time.Hour

// Store is a key/value cache with per-entry expiry.
//
// Get reports ok=false with a nil error on a miss; a non-nil error means the
// store itself could not be reached.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Flush(ctx context.Context) error
	Stats(ctx context.Context) (models.CacheStats, error)
	Close() error
}

// Fingerprint returns the cache key for a user message: the hex SHA-256 of
// the message with surrounding whitespace removed.
func Fingerprint(message string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(message)))
	return fmt.Sprintf("%x", sum[:])
}
