package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisBreakerDuration = 30 * time.Second

// RedisConfig holds optional Redis backend settings.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Manager picks the limiter backend per call: Redis when configured and
// healthy, otherwise the durable store. A breaker stops hammering a dead
// Redis; the durable backend keeps the limiter fail-closed either way.
type Manager struct {
	durable  Limiter
	policies map[string][]Limit
	nowFn    func() time.Time

	mu           sync.Mutex
	redisLimiter *RedisLimiter
	breakerUntil time.Time
}

// NewManager constructs a Manager over the durable limiter. redisCfg may be
// zero-valued to disable the Redis fast path.
func NewManager(durable Limiter, policies map[string][]Limit, redisCfg RedisConfig, nowFn func() time.Time) *Manager {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	m := &Manager{durable: durable, policies: policies, nowFn: nowFn}
	if redisCfg.Enabled && redisCfg.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		m.redisLimiter = NewRedisLimiter(client, redisCfg.Prefix)
	}
	return m
}

// Limits returns the configured limit table for a bucket.
func (m *Manager) Limits(bucket string) []Limit {
	if m == nil {
		return nil
	}
	return m.policies[bucket]
}

// Check consumes one hit from every window of the bucket for identityKey
// and reports the outcome. Consumption happens on all windows regardless of
// the final decision.
func (m *Manager) Check(ctx context.Context, identityKey, bucket string) (Outcome, error) {
	limits := m.Limits(bucket)
	if len(limits) == 0 || identityKey == "" {
		return Outcome{}, nil
	}
	now := m.nowFn().UTC()

	if limiter := m.redisBackend(now); limiter != nil {
		outcome, errTake := limiter.Take(ctx, identityKey, bucket, limits, now)
		if errTake == nil {
			return outcome, nil
		}
		m.tripBreaker(errTake, now)
	}

	return m.durable.Take(ctx, identityKey, bucket, limits, now)
}

func (m *Manager) redisBackend(now time.Time) *RedisLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redisLimiter == nil {
		return nil
	}
	if !m.breakerUntil.IsZero() {
		if now.Before(m.breakerUntil) {
			return nil
		}
		m.breakerUntil = time.Time{}
	}
	return m.redisLimiter
}

func (m *Manager) tripBreaker(err error, now time.Time) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.breakerUntil.IsZero() && now.Before(m.breakerUntil) {
		return
	}
	m.breakerUntil = now.Add(redisBreakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, using durable store")
}
