package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streamop/switchwatch/pkg/models"
)

// Cache keeps the live monitoring state in Redis so the API can answer
// health queries without probing, and so multiple monitor instances can
// coordinate.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Health State Operations

// SetStreamHealth caches the latest health snapshot for a stream server
func (c *Cache) SetStreamHealth(ctx context.Context, health *models.StreamHealth, ttl time.Duration) error {
	data, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("failed to marshal stream health: %w", err)
	}

	key := fmt.Sprintf("health:%s", health.ServerID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetStreamHealth retrieves the latest health snapshot for a stream server.
// A nil result with nil error means no snapshot is cached (the probe has not
// run yet or the snapshot expired).
func (c *Cache) GetStreamHealth(ctx context.Context, serverID string) (*models.StreamHealth, error) {
	key := fmt.Sprintf("health:%s", serverID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get stream health from cache: %w", err)
	}

	var health models.StreamHealth
	if err := json.Unmarshal(data, &health); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream health: %w", err)
	}

	return &health, nil
}

// DeleteStreamHealth removes a health snapshot from cache
func (c *Cache) DeleteStreamHealth(ctx context.Context, serverID string) error {
	key := fmt.Sprintf("health:%s", serverID)
	return c.client.Del(ctx, key).Err()
}

// SetLastBitrate caches the last observed bitrate for quick retrieval
func (c *Cache) SetLastBitrate(ctx context.Context, serverID string, kbps int64, ttl time.Duration) error {
	key := fmt.Sprintf("bitrate:%s", serverID)
	return c.client.Set(ctx, key, kbps, ttl).Err()
}

// GetLastBitrate retrieves the last observed bitrate
func (c *Cache) GetLastBitrate(ctx context.Context, serverID string) (int64, error) {
	key := fmt.Sprintf("bitrate:%s", serverID)
	return c.client.Get(ctx, key).Int64()
}

// Stats Operations

// IncrementStat increments a statistic counter
func (c *Cache) IncrementStat(ctx context.Context, stat string) error {
	key := fmt.Sprintf("stats:%s", stat)
	return c.client.Incr(ctx, key).Err()
}

// GetStat retrieves a statistic value
func (c *Cache) GetStat(ctx context.Context, stat string) (int64, error) {
	key := fmt.Sprintf("stats:%s", stat)
	return c.client.Get(ctx, key).Int64()
}

// Locking Operations for Multi-Instance Deployments

// AcquireProbeLock attempts to claim exclusive probing of a stream server.
// Only one monitor instance should probe a given server per cycle.
func (c *Cache) AcquireProbeLock(ctx context.Context, serverID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:probe:%s", serverID)
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

// ReleaseProbeLock releases a probe lock
func (c *Cache) ReleaseProbeLock(ctx context.Context, serverID string) error {
	key := fmt.Sprintf("lock:probe:%s", serverID)
	return c.client.Del(ctx, key).Err()
}

// Exists checks if a key exists
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
