package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/model"
)

// CacheClient defines the interface for cache operations. Invalidation is a
// post-commit performance hint only; nothing depends on it for correctness.
type CacheClient interface {
	GetLoad(ctx context.Context, id string) (*model.Load, error)
	SetLoad(ctx context.Context, load *model.Load) error
	InvalidateLoad(ctx context.Context, id string) error

	GetTruck(ctx context.Context, id string) (*model.TruckPosting, error)
	SetTruck(ctx context.Context, posting *model.TruckPosting) error
	InvalidateTruck(ctx context.Context, id string) error

	FlushAll(ctx context.Context) error
	Close() error
}

// RedisClient implements CacheClient using Redis
type RedisClient struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (CacheClient, error) {
	if !cfg.Enabled {
		return &RedisClient{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisClient{
		client:  client,
		enabled: true,
		ttl:     ttl,
	}, nil
}

// Prefix keys to avoid collisions
func loadKey(id string) string {
	return fmt.Sprintf("load:%s", id)
}

func truckKey(id string) string {
	return fmt.Sprintf("truck:%s", id)
}

// GetLoad retrieves a load from cache
func (c *RedisClient) GetLoad(ctx context.Context, id string) (*model.Load, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, loadKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var load model.Load
	if err := json.Unmarshal(data, &load); err != nil {
		return nil, err
	}

	return &load, nil
}

// SetLoad caches a load
func (c *RedisClient) SetLoad(ctx context.Context, load *model.Load) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(load)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, loadKey(load.ID), data, c.ttl).Err()
}

// InvalidateLoad removes a load from cache
func (c *RedisClient) InvalidateLoad(ctx context.Context, id string) error {
	if !c.enabled {
		return nil
	}

	return c.client.Del(ctx, loadKey(id)).Err()
}

// GetTruck retrieves a truck posting from cache
func (c *RedisClient) GetTruck(ctx context.Context, id string) (*model.TruckPosting, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, truckKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var posting model.TruckPosting
	if err := json.Unmarshal(data, &posting); err != nil {
		return nil, err
	}

	return &posting, nil
}

// SetTruck caches a truck posting
func (c *RedisClient) SetTruck(ctx context.Context, posting *model.TruckPosting) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(posting)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, truckKey(posting.ID), data, c.ttl).Err()
}

// InvalidateTruck removes a truck posting from cache
func (c *RedisClient) InvalidateTruck(ctx context.Context, id string) error {
	if !c.enabled {
		return nil
	}

	return c.client.Del(ctx, truckKey(id)).Err()
}

// FlushAll clears the entire cache
func (c *RedisClient) FlushAll(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	return c.client.FlushAll(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}
	return c.client.Close()
}
