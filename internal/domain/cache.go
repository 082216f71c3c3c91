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

	// GetActiveThesis retrieves the version-pinned active thesis for a
	// tenant. The cached value is only ever replaced on activation, never
	// mutated mid-run.
	GetActiveThesis(ctx context.Context, tenantID string, thesisID string) (*Thesis, error)

	// SetActiveThesis pins a thesis version as active in cache.
	SetActiveThesis(ctx context.Context, tenantID string, thesis *Thesis, ttl time.Duration) error

	// GetLatestScore retrieves the cached latest score for a company under a
	// thesis, used for tier-change detection.
	GetLatestScore(ctx context.Context, tenantID string, thesisID string, companyID string) (*ScoreResult, error)

	// SetLatestScore caches a company's latest score.
	SetLatestScore(ctx context.Context, tenantID string, result *ScoreResult, ttl time.Duration) error

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
