package ratelimit

import (
	"context"
	"time"
)

// Limit is one ceiling on a bucket: at most Max hits per WindowSeconds.
type Limit struct {
	Name          string // Window label used in response headers ("second", "minute", ...).
	Max           int64  // Maximum admitted hits per window.
	WindowSeconds int64  // Window granularity in seconds.
}

// WindowState is the post-increment state of one evaluated limit.
type WindowState struct {
	Limit     Limit
	Count     int64 // Count after this request's increment.
	Remaining int64 // max(Max-Count, 0).
	Reset     int64 // Window end, epoch seconds.
}

// Outcome is the result of evaluating every limit on a bucket. Counters are
// consumed for all windows before the admit/reject decision, so probing a
// limit is never free. RetryAfter is zero when admitted, otherwise the
// seconds until the worst exceeded window resets.
type Outcome struct {
	Windows    []WindowState
	RetryAfter int64
}

// Allowed reports whether the request was admitted on every window.
func (o Outcome) Allowed() bool {
	return o.RetryAfter == 0
}

// Limiter atomically consumes one hit from every window of a bucket.
// Implementations must make the increment-and-fetch per window a single
// atomic operation in the backing store.
type Limiter interface {
	Take(ctx context.Context, identityKey, bucket string, limits []Limit, now time.Time) (Outcome, error)
}

// WindowStart floors now onto the window grid.
func WindowStart(nowUnix, windowSeconds int64) int64 {
	if windowSeconds <= 0 {
		return nowUnix
	}
	return (nowUnix / windowSeconds) * windowSeconds
}

// evaluate folds per-window counts into an Outcome.
func evaluate(limits []Limit, counts []int64, nowUnix int64) Outcome {
	outcome := Outcome{Windows: make([]WindowState, 0, len(limits))}
	for i, limit := range limits {
		start := WindowStart(nowUnix, limit.WindowSeconds)
		reset := start + limit.WindowSeconds
		count := counts[i]
		remaining := limit.Max - count
		if remaining < 0 {
			remaining = 0
		}
		outcome.Windows = append(outcome.Windows, WindowState{
			Limit:     limit,
			Count:     count,
			Remaining: remaining,
			Reset:     reset,
		})
		if count > limit.Max {
			if retry := reset - nowUnix; retry > outcome.RetryAfter {
				outcome.RetryAfter = retry
			}
		}
	}
	return outcome
}
