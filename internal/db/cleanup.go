package db

import (
	"context"
	"fmt"
	"time"

	"github.com/axionslab/datavault/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Cleanup deletes rows that are logically dead: expired sessions, download
// tokens past their expiry, and rate-limit counters past their reset. It is
// an eventual garbage collector; correctness never depends on it because
// every read path checks expiry explicitly.
func Cleanup(ctx context.Context, conn *gorm.DB, now time.Time) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errSessions := conn.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.Session{}).Error; errSessions != nil {
		return fmt.Errorf("db: cleanup sessions: %w", errSessions)
	}

	if errTokens := conn.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.DownloadToken{}).Error; errTokens != nil {
		return fmt.Errorf("db: cleanup download tokens: %w", errTokens)
	}

	if errCounters := conn.WithContext(ctx).
		Where("reset_at <= ?", now).
		Delete(&models.RateLimitCounter{}).Error; errCounters != nil {
		return fmt.Errorf("db: cleanup rate limit counters: %w", errCounters)
	}

	return nil
}

// RunCleanupLoop runs Cleanup on a fixed interval until ctx is cancelled.
func RunCleanupLoop(ctx context.Context, conn *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errCleanup := Cleanup(ctx, conn, time.Now().UTC()); errCleanup != nil {
				log.WithError(errCleanup).Warn("db: cleanup pass failed")
			}
		}
	}
}
