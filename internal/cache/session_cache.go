// Package cache holds the Redis-backed cache of resolved session tokens.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// NewRedisClient connects to the server named by a redis:// URL and verifies
// it with a PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// SessionCache maps token hashes to the owning user id.
type SessionCache struct {
	client *redis.Client
}

func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

// Get reports whether tokenHash is cached and, if so, its user id.
func (c *SessionCache) Get(ctx context.Context, tokenHash string) (uuid.UUID, bool, error) {
	val, err := c.client.Get(ctx, sessionKeyPrefix+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		// Unreadable entries are dropped and treated as a miss.
		_ = c.client.Del(ctx, sessionKeyPrefix+tokenHash).Err()
		return uuid.Nil, false, nil
	}
	return userID, true, nil
}

func (c *SessionCache) Set(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, sessionKeyPrefix+tokenHash, userID.String(), ttl).Err()
}

func (c *SessionCache) Delete(ctx context.Context, tokenHash string) error {
	return c.client.Del(ctx, sessionKeyPrefix+tokenHash).Err()
}
