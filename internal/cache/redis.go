package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

// RedisCache implements Cache using Redis.
// Used as the Pro tier cache and as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	fullKey := c.makeKey(tenantID, key)
	val, err := c.client.Get(ctx, fullKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (c *RedisCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	fullKey := c.makeKey(tenantID, key)
	return c.client.Set(ctx, fullKey, value, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, tenantID string, key string) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	fullKey := c.makeKey(tenantID, key)
	return c.client.Del(ctx, fullKey).Err()
}

// GetActiveThesis retrieves the cached active thesis for a tenant.
func (c *RedisCache) GetActiveThesis(ctx context.Context, tenantID string, thesisID string) (*domain.Thesis, error) {
	data, err := c.Get(ctx, tenantID, thesisKey(thesisID))
	if err != nil || data == nil {
		return nil, err
	}

	var thesis domain.Thesis
	if err := json.Unmarshal(data, &thesis); err != nil {
		return nil, err
	}
	return &thesis, nil
}

// SetActiveThesis pins a thesis version as active in cache.
func (c *RedisCache) SetActiveThesis(ctx context.Context, tenantID string, thesis *domain.Thesis, ttl time.Duration) error {
	bytes, err := json.Marshal(thesis)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, thesisKey(thesis.ID), bytes, ttl)
}

// GetLatestScore retrieves a company's cached latest score under a thesis.
func (c *RedisCache) GetLatestScore(ctx context.Context, tenantID string, thesisID string, companyID string) (*domain.ScoreResult, error) {
	data, err := c.Get(ctx, tenantID, scoreKey(thesisID, companyID))
	if err != nil || data == nil {
		return nil, err
	}

	var result domain.ScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetLatestScore caches a company's latest score.
func (c *RedisCache) SetLatestScore(ctx context.Context, tenantID string, result *domain.ScoreResult, ttl time.Duration) error {
	bytes, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, scoreKey(result.ThesisID, result.CompanyID), bytes, ttl)
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) makeKey(tenantID, key string) string {
	return "radar:" + tenantID + ":" + key
}
