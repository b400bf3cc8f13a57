package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clubhouse/internal/config"
	"clubhouse/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStatusCache stores per-category availability snapshots as JSON
// blobs with a TTL, so a stale snapshot ages out even if an invalidation
// is lost.
type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisStatusCache(client *redis.Client, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{
		client: client,
		ttl:    ttl,
	}
}

func snapshotKey(category models.Category) string {
	if category == "" {
		return "facility_status:all"
	}
	return fmt.Sprintf("facility_status:%s", category)
}

// GetSnapshot returns the cached snapshot for the category, or nil on a
// cache miss.
func (r *RedisStatusCache) GetSnapshot(ctx context.Context, category models.Category) ([]models.FacilityStatus, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, snapshotKey(category)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	var statuses []models.FacilityStatus
	if err := json.Unmarshal([]byte(val), &statuses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return statuses, nil
}

func (r *RedisStatusCache) SetSnapshot(ctx context.Context, category models.Category, statuses []models.FacilityStatus) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKey(category), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in redis: %w", err)
	}

	return nil
}

// Invalidate drops every cached snapshot. Availability changes touch all
// category views (the "all" key overlaps each category), so partial
// invalidation is not worth the bookkeeping.
func (r *RedisStatusCache) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	keys := make([]string, 0, len(models.Categories)+1)
	keys = append(keys, snapshotKey(""))
	for _, category := range models.Categories {
		keys = append(keys, snapshotKey(category))
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshots: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
