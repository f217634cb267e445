package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// keyUserSegment maps user_segment:{user_id} -> segment label.
const keyUserSegment = "user_segment:%d"

var _ Cache = (*RedisCache)(nil)

// RedisCache implements Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisCache returns a RedisCache that expires entries after ttl.
func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached segment for the user.
func (c *RedisCache) Get(ctx context.Context, userID int64) (string, bool, error) {
	s, err := c.rdb.Get(ctx, fmt.Sprintf(keyUserSegment, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis get")
	}
	return s, true, nil
}

// Set caches the segment for the user.
func (c *RedisCache) Set(ctx context.Context, userID int64, segment string) error {
	if err := c.rdb.Set(ctx, fmt.Sprintf(keyUserSegment, userID), segment, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}
