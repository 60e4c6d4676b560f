package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetBaseline retrieves a cached user baseline.
	GetBaseline(ctx context.Context, tenantID string, userID string) (*UserBaseline, error)

	// SetBaseline caches a user baseline for the scoring read path.
	SetBaseline(ctx context.Context, tenantID string, userID string, baseline *UserBaseline, ttl time.Duration) error

	// DeleteBaseline invalidates a cached baseline. Called on every
	// baseline write; the cache is never allowed to go stale implicitly.
	DeleteBaseline(ctx context.Context, tenantID string, userID string) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for windowed signals (e.g., failed logins in the last 24h).
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
