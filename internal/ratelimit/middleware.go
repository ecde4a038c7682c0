package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/auth"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Require enforces one bucket for the authenticated identity. It must run
// after an auth middleware; the identity key from the auth context is the
// counter partition. Headers are written for every evaluated window whether
// or not the request is admitted.
func Require(manager *Manager, bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, authCtx, ok := auth.FromGinContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
			return
		}

		outcome, errCheck := manager.Check(c.Request.Context(), authCtx.IdentityKey, bucket)
		if errCheck != nil {
			log.WithError(errCheck).Error("rate limit: check failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
			return
		}

		ApplyHeaders(c, bucket, outcome)
		if !outcome.Allowed() {
			c.Header("Retry-After", strconv.FormatInt(outcome.RetryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": apierr.Message(apierr.ErrRateLimited)})
			return
		}
		c.Next()
	}
}

// ApplyHeaders writes the per-window headers for an outcome onto the response.
func ApplyHeaders(c *gin.Context, bucket string, outcome Outcome) {
	for name, value := range Headers(bucket, outcome) {
		c.Header(name, value)
	}
}
