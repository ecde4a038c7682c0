package security

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignedTokenRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	raw, expiresAt, errSign := SignUserToken("secret", 42, "alice", time.Hour, now)
	if errSign != nil {
		t.Fatalf("expected sign ok, got %v", errSign)
	}
	if got, want := expiresAt, now.Add(time.Hour); !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, got)
	}

	claims, errParse := ParseUserToken("secret", raw)
	if errParse != nil {
		t.Fatalf("expected parse ok, got %v", errParse)
	}
	if claims.Username != "alice" {
		t.Fatalf("expected username alice, got %s", claims.Username)
	}
	subject, errSubject := claims.SubjectID()
	if errSubject != nil {
		t.Fatalf("expected subject ok, got %v", errSubject)
	}
	if subject != 42 {
		t.Fatalf("expected subject 42, got %d", subject)
	}
}

func TestSignedTokenWrongSecret(t *testing.T) {
	raw, _, errSign := SignUserToken("secret", 42, "alice", time.Hour, time.Now().UTC())
	if errSign != nil {
		t.Fatalf("expected sign ok, got %v", errSign)
	}
	if _, errParse := ParseUserToken("other-secret", raw); !errors.Is(errParse, ErrTokenSignature) {
		t.Fatalf("expected signature error, got %v", errParse)
	}
}

func TestSignedTokenExpired(t *testing.T) {
	past := time.Now().UTC().Add(-2 * time.Hour)
	raw, _, errSign := SignUserToken("secret", 42, "alice", time.Hour, past)
	if errSign != nil {
		t.Fatalf("expected sign ok, got %v", errSign)
	}
	if _, errParse := ParseUserToken("secret", raw); !errors.Is(errParse, ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", errParse)
	}
}

func TestSignedTokenTamperedPayload(t *testing.T) {
	raw, _, errSign := SignUserToken("secret", 42, "alice", time.Hour, time.Now().UTC())
	if errSign != nil {
		t.Fatalf("expected sign ok, got %v", errSign)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	payload, errDecode := base64.RawURLEncoding.DecodeString(parts[1])
	if errDecode != nil {
		t.Fatalf("expected payload decode ok, got %v", errDecode)
	}
	tampered := bytes.Replace(payload, []byte(`"alice"`), []byte(`"mallory"`), 1)
	parts[1] = base64.RawURLEncoding.EncodeToString(tampered)

	if _, errParse := ParseUserToken("secret", strings.Join(parts, ".")); !errors.Is(errParse, ErrTokenSignature) {
		t.Fatalf("expected signature error for tampered payload, got %v", errParse)
	}
}

func TestSignedTokenRejectsUnsignedAlg(t *testing.T) {
	claims := UserClaims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
	}
	raw, errSign := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if errSign != nil {
		t.Fatalf("expected none-alg sign ok, got %v", errSign)
	}
	if _, errParse := ParseUserToken("secret", raw); errParse == nil {
		t.Fatalf("expected unsigned token rejected")
	}
}

func TestSignedTokenGarbage(t *testing.T) {
	if _, errParse := ParseUserToken("secret", "not-a-token"); !errors.Is(errParse, ErrTokenMalformed) {
		t.Fatalf("expected malformed error, got %v", errParse)
	}
}
