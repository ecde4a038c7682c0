// Package download implements the one-time, short-lived download token
// protocol: issue a random token bound to a blob, redeem it at most once
// for a presigned retrieval URL.
package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/models"
	"github.com/axionslab/datavault/internal/ratelimit"
	"github.com/axionslab/datavault/internal/security"
	"github.com/axionslab/datavault/internal/storage"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RequestContext carries the client attributes a token may be bound to.
type RequestContext struct {
	IP        string
	UserAgent string
}

// Options configures token issuance and redemption.
type Options struct {
	Secret string        // Keyed-hash secret for token hashes.
	TTL    time.Duration // Token lifetime.
	BindIP bool          // Capture and enforce the issuing client IP.
	BindUA bool          // Capture and enforce the issuing user agent.
}

// Manager issues and redeems download tokens.
type Manager struct {
	db      *gorm.DB
	opts    Options
	limiter *ratelimit.Manager
	blobs   storage.BlobStore
	nowFn   func() time.Time
}

// NewManager constructs a Manager.
func NewManager(db *gorm.DB, opts Options, limiter *ratelimit.Manager, blobs storage.BlobStore, nowFn func() time.Time) *Manager {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Manager{db: db, opts: opts, limiter: limiter, blobs: blobs, nowFn: nowFn}
}

// Issued is the one-time result of issuing a token. The raw token is never
// retrievable again.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Issue creates a token for the user and blob key, persisting only the
// keyed hash plus metadata.
func (m *Manager) Issue(ctx context.Context, userID uint64, objectKey string, reqCtx RequestContext) (Issued, error) {
	raw, errGenerate := security.GenerateToken()
	if errGenerate != nil {
		return Issued{}, errGenerate
	}

	now := m.nowFn().UTC()
	row := models.DownloadToken{
		TokenHash: security.KeyedHash(m.opts.Secret, raw),
		UserID:    userID,
		ObjectKey: objectKey,
		ExpiresAt: now.Add(m.opts.TTL),
		CreatedAt: now,
	}
	if m.opts.BindIP && reqCtx.IP != "" {
		ip := reqCtx.IP
		row.BindIP = &ip
	}
	if m.opts.BindUA && reqCtx.UserAgent != "" {
		ua := reqCtx.UserAgent
		row.BindUserAgent = &ua
	}

	if errCreate := m.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Error("download: create token failed")
		return Issued{}, fmt.Errorf("%w: create download token", apierr.ErrStoreUnavailable)
	}
	return Issued{Token: raw, ExpiresAt: row.ExpiresAt}, nil
}

// Redeem validates a raw token and exchanges it for a presigned retrieval
// URL. Checks run in a fixed order: lookup, expiry, used flag, binding,
// then a conditional update that flips used only from false. A concurrent
// redemption loses that update and observes Gone, so at most one caller
// ever receives a URL. The owner's general rate limit is charged only after
// the claim succeeds, so failed validations are never billed.
func (m *Manager) Redeem(ctx context.Context, raw string, reqCtx RequestContext) (string, ratelimit.Outcome, error) {
	tokenHash := security.KeyedHash(m.opts.Secret, raw)

	var token models.DownloadToken
	errFind := m.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		return "", ratelimit.Outcome{}, apierr.ErrNotFound
	case errFind != nil:
		log.WithError(errFind).Error("download: token lookup failed")
		return "", ratelimit.Outcome{}, fmt.Errorf("%w: token lookup", apierr.ErrStoreUnavailable)
	}

	now := m.nowFn().UTC()
	if !now.Before(token.ExpiresAt) {
		return "", ratelimit.Outcome{}, apierr.ErrGone
	}
	if token.Used {
		return "", ratelimit.Outcome{}, apierr.ErrGone
	}
	if token.BindIP != nil && *token.BindIP != reqCtx.IP {
		return "", ratelimit.Outcome{}, apierr.ErrForbidden
	}
	if token.BindUserAgent != nil && *token.BindUserAgent != reqCtx.UserAgent {
		return "", ratelimit.Outcome{}, apierr.ErrForbidden
	}

	claim := m.db.WithContext(ctx).Model(&models.DownloadToken{}).
		Where("id = ? AND used = ?", token.ID, false).
		Updates(map[string]any{
			"used":    true,
			"used_at": now,
			"used_ip": reqCtx.IP,
		})
	if claim.Error != nil {
		log.WithError(claim.Error).Error("download: claim token failed")
		return "", ratelimit.Outcome{}, fmt.Errorf("%w: claim token", apierr.ErrStoreUnavailable)
	}
	if claim.RowsAffected == 0 {
		return "", ratelimit.Outcome{}, apierr.ErrGone
	}

	identityKey := fmt.Sprintf("user:%d", token.UserID)
	outcome, errCheck := m.limiter.Check(ctx, identityKey, ratelimit.BucketGeneral)
	if errCheck != nil {
		log.WithError(errCheck).Error("download: rate limit check failed")
		return "", ratelimit.Outcome{}, fmt.Errorf("%w: rate limit", apierr.ErrStoreUnavailable)
	}
	if !outcome.Allowed() {
		return "", outcome, apierr.ErrRateLimited
	}

	url, errPresign := m.blobs.PresignGet(ctx, token.ObjectKey)
	if errPresign != nil {
		log.WithError(errPresign).Error("download: presign failed")
		return "", outcome, fmt.Errorf("%w: presign", apierr.ErrStoreUnavailable)
	}
	return url, outcome, nil
}
