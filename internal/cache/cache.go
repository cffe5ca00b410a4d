// Package cache provides the response and hook caches: a backend-agnostic
// key→value store with TTL plus the deterministic SHA-256 fingerprints used
// as keys.
//
// Two backends are available:
//   - RedisCache  — Redis-backed, recommended for multi-replica deployments.
//   - MemoryCache — in-process TTL cache, zero external dependencies.
//
// Reads degrade gracefully: any backend failure is reported as a miss so the
// dispatch pipeline never fails because the cache is unavailable.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is the default lifetime of a cached response (7 days).
const DefaultTTL = 604800 * time.Second

// Status is the outcome of a cache consultation.
type Status string

const (
	StatusHit      Status = "HIT"
	StatusMiss     Status = "MISS"
	StatusRefresh  Status = "REFRESH"  // runtime bypass (force_refresh)
	StatusDisabled Status = "DISABLED" // cache mode disabled for this request
)

// Result carries the outcome of a Lookup.
type Result struct {
	Status Status
	Key    string
	Value  []byte
}

// Cache is the storage connector for cached response bodies.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Lookup consults c for key, honouring the per-request mode and bypass flag.
//
//	disabled mode   → DISABLED, no read
//	forceRefresh    → REFRESH, no read (writes still happen on success)
//	present         → HIT with the stored value
//	absent or error → MISS
func Lookup(ctx context.Context, c Cache, key string, enabled, forceRefresh bool) Result {
	if !enabled || c == nil {
		return Result{Status: StatusDisabled, Key: key}
	}
	if forceRefresh {
		return Result{Status: StatusRefresh, Key: key}
	}
	if val, ok := c.Get(ctx, key); ok {
		return Result{Status: StatusHit, Key: key, Value: val}
	}
	return Result{Status: StatusMiss, Key: key}
}
