package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments the window counter and applies the window TTL only on
// the hit that creates the key. A counter found without a TTL gets one again
// so the window can never stay open forever.
const hitScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
elseif redis.call("PTTL", KEYS[1]) == -1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

var hitLua = redis.NewScript(hitScript)

// FixedWindow counts hits per key inside a fixed expiration window using a
// single atomic script per hit.
type FixedWindow struct {
	redis redis.UniversalClient
}

// NewFixedWindow creates a [FixedWindow] backed by the given Redis client.
func NewFixedWindow(redisClient redis.UniversalClient) *FixedWindow {
	return &FixedWindow{redis: redisClient}
}

// Hit records one hit for key and returns the post-increment count.
func (w *FixedWindow) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}

	count, err := hitLua.Run(ctx, w.redis, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}

// Count returns the current count for key. Missing keys count as zero.
func (w *FixedWindow) Count(ctx context.Context, key string) (int64, error) {
	count, err := w.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// Reset clears the counters for keys.
func (w *FixedWindow) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := w.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
