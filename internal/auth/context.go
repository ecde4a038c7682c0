package auth

import (
	"strings"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/models"
	"github.com/gin-gonic/gin"
)

// Scheme identifies which credential kind authenticated a request. Scheme
// selection is per-route, fixed at registration time.
type Scheme string

const (
	// SchemeAPIKey is a long-lived API key presented as a bearer token.
	SchemeAPIKey Scheme = "api_key"
	// SchemeSession is a short-lived server-side session token.
	SchemeSession Scheme = "session"
	// SchemeSigned is a stateless HMAC-signed token.
	SchemeSigned Scheme = "signed"
)

// Context is the auth context yielded by a successful verification. Exactly
// one IdentityKey is produced per success; it partitions rate-limit counters.
type Context struct {
	UserID      uint64
	IdentityKey string
	Scheme      Scheme

	// APIKeyID is set only for the API key scheme: the key row ID for table
	// keys, or the keyed hash of the raw key for the legacy per-user key.
	APIKeyID string
}

const (
	ginUserKey    = "authUser"
	ginContextKey = "authContext"
)

// BearerToken extracts the token from an Authorization header of the strict
// form "Bearer <token>".
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apierr.ErrUnauthorized
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", apierr.ErrUnauthorized
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apierr.ErrUnauthorized
	}
	return token, nil
}

// SetGinContext stores the principal and auth context for downstream handlers.
func SetGinContext(c *gin.Context, user *models.User, authCtx Context) {
	c.Set(ginUserKey, user)
	c.Set(ginContextKey, authCtx)
}

// FromGinContext returns the principal and auth context set by middleware.
func FromGinContext(c *gin.Context) (*models.User, Context, bool) {
	rawUser, okUser := c.Get(ginUserKey)
	rawCtx, okCtx := c.Get(ginContextKey)
	if !okUser || !okCtx {
		return nil, Context{}, false
	}
	user, okUserType := rawUser.(*models.User)
	authCtx, okCtxType := rawCtx.(Context)
	if !okUserType || !okCtxType {
		return nil, Context{}, false
	}
	return user, authCtx, true
}
