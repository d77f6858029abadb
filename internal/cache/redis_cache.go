package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"smartfix/backend/internal/domain"
)

const drawerStatusKey = "drawer:status"

type RedisDrawerStatusCache struct {
	client *redis.Client
}

func NewRedisDrawerStatusCache(addr string, password string, db int) *RedisDrawerStatusCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDrawerStatusCache{client: client}
}

func (c *RedisDrawerStatusCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDrawerStatusCache) Close() error {
	return c.client.Close()
}

func (c *RedisDrawerStatusCache) Get(ctx context.Context) (*domain.DrawerStatus, bool, error) {
	val, err := c.client.Get(ctx, drawerStatusKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var status domain.DrawerStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return nil, false, err
	}
	return &status, true, nil
}

func (c *RedisDrawerStatusCache) Set(ctx context.Context, status *domain.DrawerStatus, ttl time.Duration) error {
	if status == nil {
		return nil
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, drawerStatusKey, payload, ttl).Err()
}
