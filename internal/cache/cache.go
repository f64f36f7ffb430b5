// Package cache stores executed scenario outcomes keyed by composition
// fingerprint. A hit means the composition is byte-for-byte unchanged,
// so the cached order and trace are still valid.
package cache

import (
	"context"
	"time"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
)

// Store is an outcome cache keyed by graph hash.
type Store interface {
	// Get returns the cached outcome and whether the key was present.
	Get(ctx context.Context, key string) (*catalog.Outcome, bool, error)
	// Set stores an outcome. A zero ttl means no expiry.
	Set(ctx context.Context, key string, out *catalog.Outcome, ttl time.Duration) error
	// Delete removes a key.
	Delete(ctx context.Context, key string) error
	// Close releases resources.
	Close() error
}
