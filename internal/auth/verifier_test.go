package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/models"
	"github.com/axionslab/datavault/internal/security"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testSecrets() Secrets {
	return Secrets{
		APIKey:       "api-key-secret",
		SessionToken: "session-secret",
		SignedToken:  "signed-secret",
		SessionTTL:   time.Hour,
		SignedTTL:    time.Hour,
	}
}

func openAuthDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("expected sqlite open ok, got %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("expected sql db handle, got %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := conn.AutoMigrate(&models.User{}, &models.APIKey{}, &models.Session{}); errMigrate != nil {
		t.Fatalf("expected migrate ok, got %v", errMigrate)
	}
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, username, password string) *models.User {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("expected hash ok, got %v", errHash)
	}
	user := &models.User{Username: username, Password: hash}
	if errCreate := conn.Create(user).Error; errCreate != nil {
		t.Fatalf("expected create user ok, got %v", errCreate)
	}
	return user
}

func TestVerifyAPIKeyTableKey(t *testing.T) {
	conn := openAuthDB(t)
	verifier := NewVerifier(conn, testSecrets(), nil)
	user := seedUser(t, conn, "alice", "hunter2")

	raw := "raw-api-key"
	key := models.APIKey{
		UserID:  user.ID,
		Name:    "ci",
		KeyHash: verifier.HashAPIKey(raw),
		Last4:   raw[len(raw)-4:],
	}
	if errCreate := conn.Create(&key).Error; errCreate != nil {
		t.Fatalf("expected create key ok, got %v", errCreate)
	}

	got, authCtx, errVerify := verifier.VerifyAPIKey(context.Background(), raw)
	if errVerify != nil {
		t.Fatalf("expected verify ok, got %v", errVerify)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, got.ID)
	}
	if authCtx.Scheme != SchemeAPIKey {
		t.Fatalf("expected api_key scheme, got %s", authCtx.Scheme)
	}
	if want := "key:1"; authCtx.IdentityKey != want {
		t.Fatalf("expected identity %q, got %q", want, authCtx.IdentityKey)
	}

	var stored models.APIKey
	if errFind := conn.First(&stored, key.ID).Error; errFind != nil {
		t.Fatalf("expected key reload ok, got %v", errFind)
	}
	if stored.LastUsedAt == nil {
		t.Fatalf("expected last_used_at touched")
	}
}

func TestVerifyAPIKeyRevokedLooksUnknown(t *testing.T) {
	conn := openAuthDB(t)
	verifier := NewVerifier(conn, testSecrets(), nil)
	user := seedUser(t, conn, "alice", "hunter2")

	now := time.Now().UTC()
	raw := "revoked-key"
	key := models.APIKey{
		UserID:    user.ID,
		KeyHash:   verifier.HashAPIKey(raw),
		Last4:     raw[len(raw)-4:],
		RevokedAt: &now,
	}
	if errCreate := conn.Create(&key).Error; errCreate != nil {
		t.Fatalf("expected create key ok, got %v", errCreate)
	}

	_, _, errRevoked := verifier.VerifyAPIKey(context.Background(), raw)
	_, _, errUnknown := verifier.VerifyAPIKey(context.Background(), "never-issued")
	if !errors.Is(errRevoked, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for revoked key, got %v", errRevoked)
	}
	if !errors.Is(errUnknown, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown key, got %v", errUnknown)
	}
}

func TestVerifyAPIKeyLegacyFallback(t *testing.T) {
	conn := openAuthDB(t)
	secrets := testSecrets()
	verifier := NewVerifier(conn, secrets, nil)
	user := seedUser(t, conn, "alice", "hunter2")

	raw := "legacy-raw-key"
	if errUpdate := conn.Model(user).Update("legacy_api_key", raw).Error; errUpdate != nil {
		t.Fatalf("expected update ok, got %v", errUpdate)
	}

	got, authCtx, errVerify := verifier.VerifyAPIKey(context.Background(), raw)
	if errVerify != nil {
		t.Fatalf("expected verify ok, got %v", errVerify)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, got.ID)
	}
	if want := "key:" + security.KeyedHash(secrets.APIKey, raw); authCtx.IdentityKey != want {
		t.Fatalf("expected hash-derived identity, got %q", authCtx.IdentityKey)
	}
}

func TestSessionLifecycle(t *testing.T) {
	conn := openAuthDB(t)
	verifier := NewVerifier(conn, testSecrets(), nil)
	user := seedUser(t, conn, "alice", "hunter2")

	raw, expiresAt, errCreate := verifier.CreateSession(context.Background(), user.ID)
	if errCreate != nil {
		t.Fatalf("expected create session ok, got %v", errCreate)
	}
	if !expiresAt.After(time.Now().UTC()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	got, authCtx, errVerify := verifier.VerifySession(context.Background(), raw)
	if errVerify != nil {
		t.Fatalf("expected verify ok, got %v", errVerify)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, got.ID)
	}
	if want := "user:1"; authCtx.IdentityKey != want {
		t.Fatalf("expected identity %q, got %q", want, authCtx.IdentityKey)
	}

	if errRevoke := verifier.RevokeSession(context.Background(), raw); errRevoke != nil {
		t.Fatalf("expected revoke ok, got %v", errRevoke)
	}
	if _, _, errGone := verifier.VerifySession(context.Background(), raw); !errors.Is(errGone, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after revoke, got %v", errGone)
	}
	// Revoking again is a no-op, not an error.
	if errAgain := verifier.RevokeSession(context.Background(), raw); errAgain != nil {
		t.Fatalf("expected idempotent revoke, got %v", errAgain)
	}
}

func TestVerifySessionExpiredRowStillPresent(t *testing.T) {
	conn := openAuthDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	verifier := NewVerifier(conn, testSecrets(), func() time.Time { return now })
	user := seedUser(t, conn, "alice", "hunter2")

	raw, _, errCreate := verifier.CreateSession(context.Background(), user.ID)
	if errCreate != nil {
		t.Fatalf("expected create session ok, got %v", errCreate)
	}

	now = base.Add(2 * time.Hour)
	if _, _, errExpired := verifier.VerifySession(context.Background(), raw); !errors.Is(errExpired, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for expired session, got %v", errExpired)
	}

	// The expired row is still in the store; only the clock rejected it.
	var count int64
	if errCount := conn.Model(&models.Session{}).Count(&count).Error; errCount != nil {
		t.Fatalf("expected count ok, got %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected session row to remain, got %d rows", count)
	}
}

func TestVerifySignedToken(t *testing.T) {
	conn := openAuthDB(t)
	verifier := NewVerifier(conn, testSecrets(), nil)
	user := seedUser(t, conn, "alice", "hunter2")

	raw, _, errIssue := verifier.IssueSignedToken(user.ID, user.Username)
	if errIssue != nil {
		t.Fatalf("expected issue ok, got %v", errIssue)
	}

	got, authCtx, errVerify := verifier.VerifySignedToken(context.Background(), raw)
	if errVerify != nil {
		t.Fatalf("expected verify ok, got %v", errVerify)
	}
	if got.Username != "alice" {
		t.Fatalf("expected alice, got %s", got.Username)
	}
	if authCtx.Scheme != SchemeSigned {
		t.Fatalf("expected signed scheme, got %s", authCtx.Scheme)
	}

	if _, _, errGarbage := verifier.VerifySignedToken(context.Background(), "garbage"); !errors.Is(errGarbage, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for garbage token, got %v", errGarbage)
	}

	if errDelete := conn.Delete(&models.User{}, user.ID).Error; errDelete != nil {
		t.Fatalf("expected delete ok, got %v", errDelete)
	}
	if _, _, errOrphan := verifier.VerifySignedToken(context.Background(), raw); !errors.Is(errOrphan, apierr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for deleted subject, got %v", errOrphan)
	}
}

func TestVerifyPassword(t *testing.T) {
	conn := openAuthDB(t)
	verifier := NewVerifier(conn, testSecrets(), nil)
	seedUser(t, conn, "alice", "hunter2")

	if _, errVerify := verifier.VerifyPassword(context.Background(), "alice", "hunter2"); errVerify != nil {
		t.Fatalf("expected verify ok, got %v", errVerify)
	}

	_, errWrong := verifier.VerifyPassword(context.Background(), "alice", "wrong")
	_, errUnknown := verifier.VerifyPassword(context.Background(), "nobody", "hunter2")
	if !errors.Is(errWrong, apierr.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong password, got %v", errWrong)
	}
	if !errors.Is(errUnknown, apierr.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", errUnknown)
	}
}
