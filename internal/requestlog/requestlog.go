// Package requestlog records authenticated requests for the per-user audit
// endpoint. Writes are best-effort and never block the response path.
package requestlog

import (
	"context"
	"strconv"
	"time"

	"github.com/axionslab/datavault/internal/auth"
	"github.com/axionslab/datavault/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const writeTimeout = 5 * time.Second

// Recorder writes request log rows.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Middleware logs the request after completion when it authenticated.
// uploadParam names the route parameter carrying the correlated upload ID;
// it is fixed per route at registration time, empty for routes without one.
func (r *Recorder) Middleware(uploadParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		_, authCtx, ok := auth.FromGinContext(c)
		if !ok {
			return
		}

		var uploadID *uint64
		if uploadParam != "" {
			if parsed, errParse := strconv.ParseUint(c.Param(uploadParam), 10, 64); errParse == nil {
				uploadID = &parsed
			}
		}

		var apiKeyID *string
		if authCtx.APIKeyID != "" {
			keyID := authCtx.APIKeyID
			apiKeyID = &keyID
		}

		row := models.RequestLog{
			Timestamp:  time.Now().UTC(),
			UserID:     authCtx.UserID,
			APIKeyID:   apiKeyID,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
			LatencyMS:  time.Since(start).Milliseconds(),
			UploadID:   uploadID,
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}

		// The request context is done once the response is written; use a
		// detached timeout for the audit write.
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if errCreate := r.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
			log.WithError(errCreate).Warn("requestlog: write failed")
		}
	}
}
