package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	windowStart int64
	count       int64
}

// MemoryLimiter implements fixed-window counting in process memory. It is
// used by tests and as the last-ditch fallback when no store is reachable;
// counts are per-process only.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*memoryEntry
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counters: make(map[string]*memoryEntry)}
}

// Take implements Limiter.
func (l *MemoryLimiter) Take(_ context.Context, identityKey, bucket string, limits []Limit, now time.Time) (Outcome, error) {
	nowUnix := now.Unix()
	counts := make([]int64, len(limits))

	l.mu.Lock()
	for i, limit := range limits {
		start := WindowStart(nowUnix, limit.WindowSeconds)
		key := fmt.Sprintf("%s:%s:%d", identityKey, bucket, limit.WindowSeconds)
		entry := l.counters[key]
		if entry == nil {
			entry = &memoryEntry{windowStart: start}
			l.counters[key] = entry
		}
		if entry.windowStart != start {
			entry.windowStart = start
			entry.count = 0
		}
		entry.count++
		counts[i] = entry.count
	}
	l.mu.Unlock()

	return evaluate(limits, counts, nowUnix), nil
}
