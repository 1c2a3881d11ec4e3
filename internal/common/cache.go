package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lgulliver/craftcms/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client. It only ever mirrors rows that live in the
// catalog, so losing it never loses state.
type Cache struct {
	client *redis.Client
}

// CachedSession is the cache representation of a session row
type CachedSession struct {
	UserID    uint      `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCache creates a new cache instance
func NewCache(cfg *config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewCacheFromClient wraps an existing client
func NewCacheFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func sessionKey(token string) string {
	return "session:" + token
}

// PutSession mirrors a session until its expiry
func (c *Cache) PutSession(ctx context.Context, token string, s CachedSession) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.client.Set(ctx, sessionKey(token), data, ttl).Err()
}

// GetSession returns the mirrored session. found is false on a cache miss.
func (c *Cache) GetSession(ctx context.Context, token string) (s CachedSession, found bool, err error) {
	data, err := c.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s, false, nil
		}
		return s, false, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return s, true, nil
}

// DropSession removes a mirrored session; a missing key is not an error
func (c *Cache) DropSession(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = sessionKey(t)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
