package presence

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "presence:"

// RedisTracker keeps presence sets in Redis, shared across instances.
type RedisTracker struct {
	client *redis.Client
}

// NewRedisTracker wraps a connected client.
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{client: client}
}

// Join adds an identity to the channel's presence set.
func (t *RedisTracker) Join(ctx context.Context, channel, identity string) error {
	return t.client.SAdd(ctx, keyPrefix+channel, identity).Err()
}

// Leave removes an identity from the channel's presence set.
func (t *RedisTracker) Leave(ctx context.Context, channel, identity string) error {
	return t.client.SRem(ctx, keyPrefix+channel, identity).Err()
}

// Count returns the size of the channel's presence set.
func (t *RedisTracker) Count(ctx context.Context, channel string) (int, error) {
	n, err := t.client.SCard(ctx, keyPrefix+channel).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Clear removes the channel's presence set entirely.
func (t *RedisTracker) Clear(ctx context.Context, channel string) error {
	return t.client.Del(ctx, keyPrefix+channel).Err()
}
