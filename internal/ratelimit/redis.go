package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript increments KEYS[1] unless it already exceeds ARGV[1],
// setting a PEXPIRE of ARGV[2] on the first hit.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current > tonumber(ARGV[1]) then
  return current
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return current
`)

// RedisCounter counts in a shared Redis instance.
type RedisCounter struct {
	client redis.Scripter
}

// NewRedisCounter creates a counter on client.
func NewRedisCounter(client redis.Scripter) *RedisCounter {
	return &RedisCounter{client: client}
}

// IncrementAndGet implements Counter.
func (c *RedisCounter) IncrementAndGet(ctx context.Context, key string, limit int, ttl time.Duration) (int64, error) {
	ttlMillis := ttl.Milliseconds()
	if ttlMillis <= 0 {
		ttlMillis = 1000
	}

	result, err := incrementScript.Run(ctx, c.client, []string{key}, limit, ttlMillis).Result()
	if err != nil {
		return 0, fmt.Errorf("running increment script: %w", err)
	}
	count, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected redis counter response")
	}
	return count, nil
}
