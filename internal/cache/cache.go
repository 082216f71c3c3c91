package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

// New creates a new cache based on configuration.
// For Community tier: returns LRU cache.
// For Pro tier with two-phase: returns TwoPhaseCache wrapping LRU + Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache implements the two-phase caching strategy.
// L1: Local LRU cache for fast reads
// L2: Redis for distributed caching and persistence
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	local := NewLRUCache(cfg.LocalMaxSize)

	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}, nil
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	// Check L1 first
	val, err := c.local.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	// Check L2
	val, err = c.remote.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		// Populate L1 for future reads
		_ = c.local.Set(ctx, tenantID, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes to both L1 and L2.
func (c *TwoPhaseCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	// Write to L1 with shorter TTL
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, tenantID, key, value, l1TTL); err != nil {
		return err
	}

	// Write to L2 with full TTL
	return c.remote.Set(ctx, tenantID, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, tenantID string, key string) error {
	if err := c.local.Delete(ctx, tenantID, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, tenantID, key)
}

// GetActiveThesis retrieves the cached active thesis, L1 first.
func (c *TwoPhaseCache) GetActiveThesis(ctx context.Context, tenantID string, thesisID string) (*domain.Thesis, error) {
	thesis, err := c.local.GetActiveThesis(ctx, tenantID, thesisID)
	if err != nil {
		return nil, err
	}
	if thesis != nil {
		return thesis, nil
	}

	thesis, err = c.remote.GetActiveThesis(ctx, tenantID, thesisID)
	if err != nil {
		return nil, err
	}
	if thesis != nil {
		// Populate L1
		_ = c.local.SetActiveThesis(ctx, tenantID, thesis, c.l1TTL)
	}

	return thesis, nil
}

// SetActiveThesis pins the thesis in both L1 and L2.
func (c *TwoPhaseCache) SetActiveThesis(ctx context.Context, tenantID string, thesis *domain.Thesis, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.SetActiveThesis(ctx, tenantID, thesis, l1TTL); err != nil {
		return err
	}
	return c.remote.SetActiveThesis(ctx, tenantID, thesis, ttl)
}

// GetLatestScore retrieves a company's cached latest score, L1 first.
func (c *TwoPhaseCache) GetLatestScore(ctx context.Context, tenantID string, thesisID string, companyID string) (*domain.ScoreResult, error) {
	result, err := c.local.GetLatestScore(ctx, tenantID, thesisID, companyID)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	result, err = c.remote.GetLatestScore(ctx, tenantID, thesisID, companyID)
	if err != nil {
		return nil, err
	}
	if result != nil {
		_ = c.local.SetLatestScore(ctx, tenantID, result, c.l1TTL)
	}

	return result, nil
}

// SetLatestScore caches the score in both L1 and L2.
func (c *TwoPhaseCache) SetLatestScore(ctx context.Context, tenantID string, result *domain.ScoreResult, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.SetLatestScore(ctx, tenantID, result, l1TTL); err != nil {
		return err
	}
	return c.remote.SetLatestScore(ctx, tenantID, result, ttl)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
