package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript increments the per-key counter and stamps the window expiry only
// when the counter is fresh, so the check-and-increment is atomic server-side.
var takeScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisStore shares one quota window across instances. It is opt-in: single
// instance deployments keep the MemoryStore.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "voicegate:quota:",
	}
}

// Take implements Store. Counts above max keep incrementing but the expiry is
// never extended, matching the fixed-window contract.
func (s *RedisStore) Take(ctx context.Context, key string, window time.Duration, max int) (bool, error) {
	count, err := takeScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis take: %w", err)
	}
	return count <= int64(max), nil
}
