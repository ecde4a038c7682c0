package ratelimit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// upsertCounterSQL performs the increment-and-fetch as one statement. The
// composite unique index on (identity_key, bucket, window_seconds,
// window_start) makes concurrent callers serialize on the row; there is no
// read-then-write window. The syntax is shared by PostgreSQL and SQLite.
const upsertCounterSQL = `
INSERT INTO rate_limit_counters (identity_key, bucket, window_seconds, window_start, count, reset_at)
VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT (identity_key, bucket, window_seconds, window_start)
DO UPDATE SET count = rate_limit_counters.count + 1
RETURNING count`

// GormLimiter counts in the durable store via atomic upserts. It is the
// authoritative backend: counters survive restarts and are shared across
// processes.
type GormLimiter struct {
	db *gorm.DB
}

// NewGormLimiter constructs a GormLimiter.
func NewGormLimiter(db *gorm.DB) *GormLimiter {
	return &GormLimiter{db: db}
}

// Take implements Limiter.
func (l *GormLimiter) Take(ctx context.Context, identityKey, bucket string, limits []Limit, now time.Time) (Outcome, error) {
	if l == nil || l.db == nil {
		return Outcome{}, fmt.Errorf("rate limit: gorm limiter not initialized")
	}
	nowUnix := now.Unix()
	counts := make([]int64, len(limits))

	for i, limit := range limits {
		start := WindowStart(nowUnix, limit.WindowSeconds)
		resetAt := time.Unix(start+limit.WindowSeconds, 0).UTC()

		var count int64
		if errUpsert := l.db.WithContext(ctx).
			Raw(upsertCounterSQL, identityKey, bucket, limit.WindowSeconds, start, resetAt).
			Scan(&count).Error; errUpsert != nil {
			return Outcome{}, fmt.Errorf("rate limit: consume %s/%s: %w", bucket, limit.Name, errUpsert)
		}
		counts[i] = count
	}

	return evaluate(limits, counts, nowUnix), nil
}
