package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the payload of a stateless signed token. There is no
// revocation path for these tokens; operators rely on the short TTL.
type UserClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Signed token failure classes. Callers collapse all of them to a uniform
// unauthorized response; the distinction exists for logs only.
var (
	ErrTokenMalformed = errors.New("security: malformed token")
	ErrTokenSignature = errors.New("security: bad token signature")
	ErrTokenExpired   = errors.New("security: token expired")
)

// SignUserToken mints an HS256 token for the given user.
func SignUserToken(secret string, userID uint64, username string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := UserClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", time.Time{}, fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, expiresAt, nil
}

// ParseUserToken verifies signature and expiry and returns the claims.
// The signing method is pinned to HS256.
func ParseUserToken(secret, raw string) (*UserClaims, error) {
	claims := &UserClaims{}
	_, errParse := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenSignature
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errParse != nil {
		switch {
		case errors.Is(errParse, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(errParse, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	return claims, nil
}

// SubjectID parses the numeric subject from verified claims.
func (c *UserClaims) SubjectID() (uint64, error) {
	if c == nil {
		return 0, ErrTokenMalformed
	}
	id, errParse := strconv.ParseUint(c.Subject, 10, 64)
	if errParse != nil {
		return 0, ErrTokenMalformed
	}
	return id, nil
}
