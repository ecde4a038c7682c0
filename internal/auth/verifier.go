package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/models"
	"github.com/axionslab/datavault/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Secrets holds the server-side keys the verifier hashes and signs with.
// They are never exposed to callers.
type Secrets struct {
	APIKey       string
	SessionToken string
	SignedToken  string
	SessionTTL   time.Duration
	SignedTTL    time.Duration
}

// Verifier validates bearer credentials against the store. Every failure
// path collapses to apierr.ErrUnauthorized so callers cannot distinguish
// "revoked", "expired", or "never existed".
type Verifier struct {
	db      *gorm.DB
	secrets Secrets
	nowFn   func() time.Time
}

// NewVerifier constructs a Verifier.
func NewVerifier(db *gorm.DB, secrets Secrets, nowFn func() time.Time) *Verifier {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Verifier{db: db, secrets: secrets, nowFn: nowFn}
}

// VerifyAPIKey authenticates a raw API key. Table keys are matched by keyed
// hash with revoked rows excluded in the query itself, so a revoked key and
// a never-issued key produce identical outcomes. On a miss it falls back to
// the legacy single-key field on users.
func (v *Verifier) VerifyAPIKey(ctx context.Context, bearer string) (*models.User, Context, error) {
	keyHash := security.KeyedHash(v.secrets.APIKey, bearer)

	var key models.APIKey
	errFind := v.db.WithContext(ctx).
		Where("key_hash = ? AND revoked_at IS NULL", keyHash).
		First(&key).Error
	switch {
	case errFind == nil:
		v.touchAPIKey(ctx, key.ID)
		user, errUser := v.loadUser(ctx, key.UserID)
		if errUser != nil {
			return nil, Context{}, errUser
		}
		keyID := strconv.FormatUint(key.ID, 10)
		return user, Context{
			UserID:      user.ID,
			IdentityKey: "key:" + keyID,
			Scheme:      SchemeAPIKey,
			APIKeyID:    keyID,
		}, nil
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		// fall through to the legacy lookup
	default:
		return nil, Context{}, storeFailure("api key lookup", errFind)
	}

	var user models.User
	errLegacy := v.db.WithContext(ctx).
		Where("legacy_api_key = ?", bearer).
		First(&user).Error
	switch {
	case errLegacy == nil:
		return &user, Context{
			UserID:      user.ID,
			IdentityKey: "key:" + keyHash,
			Scheme:      SchemeAPIKey,
			APIKeyID:    keyHash,
		}, nil
	case errors.Is(errLegacy, gorm.ErrRecordNotFound):
		return nil, Context{}, apierr.ErrUnauthorized
	default:
		return nil, Context{}, storeFailure("legacy api key lookup", errLegacy)
	}
}

// VerifySession authenticates a raw session token. An expired session fails
// exactly like a missing one, even when the row still exists because the
// garbage collector has not caught up.
func (v *Verifier) VerifySession(ctx context.Context, bearer string) (*models.User, Context, error) {
	tokenHash := security.KeyedHash(v.secrets.SessionToken, bearer)

	var session models.Session
	errFind := v.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&session).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		return nil, Context{}, apierr.ErrUnauthorized
	case errFind != nil:
		return nil, Context{}, storeFailure("session lookup", errFind)
	}

	if session.Expired(v.nowFn().UTC()) {
		return nil, Context{}, apierr.ErrUnauthorized
	}

	v.touchSession(ctx, session.ID)
	user, errUser := v.loadUser(ctx, session.UserID)
	if errUser != nil {
		return nil, Context{}, errUser
	}
	return user, Context{
		UserID:      user.ID,
		IdentityKey: fmt.Sprintf("user:%d", user.ID),
		Scheme:      SchemeSession,
	}, nil
}

// VerifySignedToken authenticates a stateless signed token. Format,
// signature, and expiry failures are distinguished in logs only; the caller
// sees a uniform unauthorized.
func (v *Verifier) VerifySignedToken(ctx context.Context, bearer string) (*models.User, Context, error) {
	claims, errParse := security.ParseUserToken(v.secrets.SignedToken, bearer)
	if errParse != nil {
		log.WithError(errParse).Debug("auth: signed token rejected")
		return nil, Context{}, apierr.ErrUnauthorized
	}
	subject, errSubject := claims.SubjectID()
	if errSubject != nil {
		return nil, Context{}, apierr.ErrUnauthorized
	}
	user, errUser := v.loadUser(ctx, subject)
	if errUser != nil {
		return nil, Context{}, errUser
	}
	return user, Context{
		UserID:      user.ID,
		IdentityKey: fmt.Sprintf("user:%d", user.ID),
		Scheme:      SchemeSigned,
	}, nil
}

// VerifyPassword checks a username/password pair at login. The unknown-user
// path burns a bcrypt comparison so the response does not reveal whether the
// username exists.
func (v *Verifier) VerifyPassword(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	errFind := v.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		security.BurnPasswordCheck(password)
		return nil, apierr.ErrInvalidCredentials
	case errFind != nil:
		return nil, storeFailure("user lookup", errFind)
	}
	if !security.CheckPassword(user.Password, password) {
		return nil, apierr.ErrInvalidCredentials
	}
	return &user, nil
}

// CreateSession issues a raw session token for a user, persisting only its
// keyed hash. The raw token is returned exactly once.
func (v *Verifier) CreateSession(ctx context.Context, userID uint64) (string, time.Time, error) {
	raw, errGenerate := security.GenerateToken()
	if errGenerate != nil {
		return "", time.Time{}, errGenerate
	}
	now := v.nowFn().UTC()
	session := models.Session{
		UserID:    userID,
		TokenHash: security.KeyedHash(v.secrets.SessionToken, raw),
		ExpiresAt: now.Add(v.secrets.SessionTTL),
		CreatedAt: now,
	}
	if errCreate := v.db.WithContext(ctx).Create(&session).Error; errCreate != nil {
		return "", time.Time{}, storeFailure("create session", errCreate)
	}
	return raw, session.ExpiresAt, nil
}

// RevokeSession deletes the session matching the presented raw token.
// Unknown tokens are not an error; logout is idempotent.
func (v *Verifier) RevokeSession(ctx context.Context, bearer string) error {
	tokenHash := security.KeyedHash(v.secrets.SessionToken, bearer)
	if errDelete := v.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Delete(&models.Session{}).Error; errDelete != nil {
		return storeFailure("revoke session", errDelete)
	}
	return nil
}

// IssueSignedToken mints a stateless token for a user.
func (v *Verifier) IssueSignedToken(userID uint64, username string) (string, time.Time, error) {
	return security.SignUserToken(v.secrets.SignedToken, userID, username, v.secrets.SignedTTL, v.nowFn().UTC())
}

// HashAPIKey exposes the API key hash derivation to the key management
// handlers, keeping the secret inside the verifier.
func (v *Verifier) HashAPIKey(raw string) string {
	return security.KeyedHash(v.secrets.APIKey, raw)
}

func (v *Verifier) loadUser(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	errFind := v.db.WithContext(ctx).First(&user, id).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		return nil, apierr.ErrUnauthorized
	case errFind != nil:
		return nil, storeFailure("load user", errFind)
	}
	return &user, nil
}

// touchAPIKey updates last_used_at best-effort; verification does not wait
// on it being durable.
func (v *Verifier) touchAPIKey(ctx context.Context, id uint64) {
	now := v.nowFn().UTC()
	if errTouch := v.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", now).Error; errTouch != nil {
		log.WithError(errTouch).Warn("auth: touch api key failed")
	}
}

func (v *Verifier) touchSession(ctx context.Context, id uint64) {
	now := v.nowFn().UTC()
	if errTouch := v.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", now).Error; errTouch != nil {
		log.WithError(errTouch).Warn("auth: touch session failed")
	}
}

func storeFailure(op string, err error) error {
	log.WithError(err).Error("auth: " + op + " failed")
	return fmt.Errorf("%w: %s", apierr.ErrStoreUnavailable, op)
}
