package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gg:rl:"

// slidingWindowScript trims entries at or before now-window, rejects when
// the remaining count is at the limit, and otherwise records now.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now_ms - window_ms)
if redis.call("ZCARD", key) >= limit then
  return 0
end
redis.call("ZADD", key, now_ms, ARGV[4])
redis.call("PEXPIRE", key, window_ms)
return 1
`)

// RedisStore keeps windows in Redis sorted sets so that every instance
// shares one limit.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a store. An empty prefix uses "gg:rl:"; now
// defaults to time.Now.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, prefix: prefix, now: now}
}

// CheckAndRecord implements Store.
func (s *RedisStore) CheckAndRecord(ctx context.Context, key string, window time.Duration, max int) (bool, error) {
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		return false, ErrInvalidWindow
	}

	now := s.now()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())
	res, err := slidingWindowScript.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixMilli(), windowMS, max, member).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}
