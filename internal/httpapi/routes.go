// Package httpapi wires the HTTP surface: route registration, per-route
// authentication scheme, per-route rate limit buckets, and request logging.
package httpapi

import (
	"github.com/axionslab/datavault/internal/auth"
	"github.com/axionslab/datavault/internal/download"
	"github.com/axionslab/datavault/internal/httpapi/handlers"
	"github.com/axionslab/datavault/internal/ratelimit"
	"github.com/axionslab/datavault/internal/requestlog"
	"github.com/axionslab/datavault/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the constructed collaborators into route registration.
type Deps struct {
	DB            *gorm.DB
	Verifier      *auth.Verifier
	Limiter       *ratelimit.Manager
	Tokens        *download.Manager
	Blobs         storage.BlobStore
	Recorder      *requestlog.Recorder
	UploadLimits  handlers.UploadLimits
	PublicBaseURL string
}

// RegisterRoutes attaches every route to the engine. The authentication
// scheme and rate limit buckets are fixed per route here, at registration
// time, never negotiated per request.
func RegisterRoutes(engine *gin.Engine, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.DB, deps.Verifier)
	keyHandler := handlers.NewAPIKeyHandler(deps.DB, deps.Verifier)
	uploadHandler := handlers.NewUploadHandler(deps.DB, deps.Blobs, deps.Tokens, deps.UploadLimits, deps.PublicBaseURL)
	downloadHandler := handlers.NewDownloadHandler(deps.Tokens)
	logHandler := handlers.NewRequestLogHandler(deps.DB)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	engine.GET("/healthz", healthHandler.Healthz)

	user := engine.Group("/user")
	{
		user.POST("/register", authHandler.Register)
		user.POST("/login", authHandler.Login)
		user.POST("/logout", authHandler.Logout)
	}

	// Legacy single-key flow, password-authenticated in the body.
	engine.POST("/apikey/create", authHandler.CreateLegacyKey)

	keys := engine.Group("/auth/apikeys",
		auth.RequireSession(deps.Verifier),
		ratelimit.Require(deps.Limiter, ratelimit.BucketGeneral),
		deps.Recorder.Middleware(""),
	)
	{
		keys.POST("", keyHandler.Create)
		keys.GET("", keyHandler.List)
		keys.DELETE("/:id", keyHandler.Revoke)
	}

	data := engine.Group("/data", auth.RequireAPIKey(deps.Verifier))
	{
		data.POST("/upload",
			ratelimit.Require(deps.Limiter, ratelimit.BucketGeneral),
			ratelimit.Require(deps.Limiter, ratelimit.BucketUpload),
			deps.Recorder.Middleware(""),
			uploadHandler.Create,
		)
		data.GET("/uploads",
			ratelimit.Require(deps.Limiter, ratelimit.BucketGeneral),
			deps.Recorder.Middleware(""),
			uploadHandler.List,
		)
		data.GET("/upload/:id",
			ratelimit.Require(deps.Limiter, ratelimit.BucketGeneral),
			deps.Recorder.Middleware("id"),
			uploadHandler.Get,
		)
		data.DELETE("/upload/:id",
			ratelimit.Require(deps.Limiter, ratelimit.BucketGeneral),
			deps.Recorder.Middleware("id"),
			uploadHandler.Delete,
		)
		data.POST("/upload/:id/link",
			ratelimit.Require(deps.Limiter, ratelimit.BucketGeneral),
			ratelimit.Require(deps.Limiter, ratelimit.BucketDownloadLink),
			deps.Recorder.Middleware("id"),
			uploadHandler.CreateLink,
		)
	}

	// Redeem carries no bearer credential; the token is the authorization
	// and its owner's general bucket is charged inside the manager.
	engine.GET("/data/download/:token", downloadHandler.Redeem)

	admin := engine.Group("/admin", auth.RequireSignedToken(deps.Verifier))
	{
		admin.GET("/me/logs",
			ratelimit.Require(deps.Limiter, ratelimit.BucketGeneral),
			logHandler.ListMine,
		)
	}
}
