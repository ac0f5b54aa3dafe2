package call

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// allowScript prunes, counts and records in one round trip so that
// concurrent processes never overshoot the limit.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisWindow is a Quota shared across processes through a redis sorted set.
// Allow fails open on redis errors: it returns true together with the error.
type RedisWindow struct {
	client redis.Cmdable
	key    string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisWindow creates a window stored under key
func NewRedisWindow(client redis.Cmdable, key string, limit int, window time.Duration) *RedisWindow {
	return &RedisWindow{
		client: client,
		key:    key,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (w *RedisWindow) Allow(ctx context.Context) (bool, error) {
	now := w.now().UnixMilli()
	res, err := allowScript.Run(ctx, w.client, []string{w.key},
		now, w.window.Milliseconds(), w.limit, strconv.FormatInt(now, 10)+"-"+uuid.NewString(),
	).Int()
	if err != nil {
		return true, fmt.Errorf("quota window %s: %w", w.key, err)
	}
	return res == 1, nil
}

func (w *RedisWindow) Remaining(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.window).UnixMilli()

	var card *redis.IntCmd
	_, err := w.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, w.key, "-inf", strconv.FormatInt(cutoff, 10))
		card = pipe.ZCard(ctx, w.key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return w.limit - int(card.Val()), nil
}

func (w *RedisWindow) Reset(ctx context.Context) error {
	return w.client.Del(ctx, w.key).Err()
}
