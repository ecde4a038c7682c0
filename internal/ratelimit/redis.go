package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisIncrScript increments the window counter and stamps its TTL on first
// hit, as one server-side operation.
var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// redisWindowGraceSeconds keeps a window key alive slightly past its reset
// so late readers still observe it.
const redisWindowGraceSeconds = 2

// RedisLimiter counts in Redis. It is faster than the durable backend and
// suitable when counters may be lost on Redis restart.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Take implements Limiter.
func (l *RedisLimiter) Take(ctx context.Context, identityKey, bucket string, limits []Limit, now time.Time) (Outcome, error) {
	if l == nil || l.client == nil {
		return Outcome{}, errors.New("rate limit redis: not initialized")
	}
	nowUnix := now.Unix()
	counts := make([]int64, len(limits))

	for i, limit := range limits {
		start := WindowStart(nowUnix, limit.WindowSeconds)
		key := l.buildKey(identityKey, bucket, limit.WindowSeconds, start)
		ttl := limit.WindowSeconds + redisWindowGraceSeconds

		res, errEval := redisIncrScript.Run(ctx, l.client, []string{key}, ttl).Result()
		if errEval != nil {
			return Outcome{}, fmt.Errorf("rate limit redis: consume %s/%s: %w", bucket, limit.Name, errEval)
		}
		count, ok := res.(int64)
		if !ok {
			return Outcome{}, errors.New("rate limit redis: unexpected response type")
		}
		counts[i] = count
	}

	return evaluate(limits, counts, nowUnix), nil
}

func (l *RedisLimiter) buildKey(identityKey, bucket string, windowSeconds, windowStart int64) string {
	base := fmt.Sprintf("%s:%s:%d:%d", identityKey, bucket, windowSeconds, windowStart)
	if l.prefix == "" {
		return base
	}
	return l.prefix + ":" + base
}
