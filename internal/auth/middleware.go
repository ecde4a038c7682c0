package auth

import (
	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/models"
	"github.com/gin-gonic/gin"
)

// verifyFunc is one scheme's verification operation.
type verifyFunc func(c *gin.Context, bearer string) (*models.User, Context, error)

// RequireAPIKey authenticates the route with the API key scheme.
func RequireAPIKey(v *Verifier) gin.HandlerFunc {
	return requireScheme(func(c *gin.Context, bearer string) (*models.User, Context, error) {
		return v.VerifyAPIKey(c.Request.Context(), bearer)
	})
}

// RequireSession authenticates the route with the session token scheme.
func RequireSession(v *Verifier) gin.HandlerFunc {
	return requireScheme(func(c *gin.Context, bearer string) (*models.User, Context, error) {
		return v.VerifySession(c.Request.Context(), bearer)
	})
}

// RequireSignedToken authenticates the route with the stateless signed
// token scheme.
func RequireSignedToken(v *Verifier) gin.HandlerFunc {
	return requireScheme(func(c *gin.Context, bearer string) (*models.User, Context, error) {
		return v.VerifySignedToken(c.Request.Context(), bearer)
	})
}

func requireScheme(verify verifyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer, errBearer := BearerToken(c.GetHeader("Authorization"))
		if errBearer != nil {
			abortWith(c, errBearer)
			return
		}
		user, authCtx, errVerify := verify(c, bearer)
		if errVerify != nil {
			abortWith(c, errVerify)
			return
		}
		SetGinContext(c, user, authCtx)
		c.Next()
	}
}

func abortWith(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apierr.Status(err), gin.H{"error": apierr.Message(err)})
}
