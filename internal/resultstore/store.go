// Package resultstore implements content-addressed persistence for
// task results, keyed by the cache key a task's CacheKeyFn computes.
// Concrete stores satisfy engine.ResultStore structurally.
package resultstore

import (
	"context"
	"time"

	"github.com/maumercado/flowcore/internal/engine"
)

// Store persists and retrieves task results by cache key.
type Store interface {
	// Get returns the stored result for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (engine.Result, bool, error)
	// Put stores result under key, optionally expiring at expiresAt.
	Put(ctx context.Context, key string, result engine.Result, expiresAt *time.Time) error
	// Close releases any resources the store holds open.
	Close() error
}
