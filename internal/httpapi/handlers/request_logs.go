package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/auth"
	"github.com/axionslab/datavault/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

// RequestLogHandler serves the per-user audit trail. Routes use the
// signed-token scheme.
type RequestLogHandler struct {
	db *gorm.DB
}

// NewRequestLogHandler constructs a RequestLogHandler.
func NewRequestLogHandler(db *gorm.DB) *RequestLogHandler {
	return &RequestLogHandler{db: db}
}

// ListMine returns the caller's recent request log rows, newest first.
// The limit query parameter is clamped to 1..200.
func (h *RequestLogHandler) ListMine(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}

	limit := defaultLogLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	var rows []models.RequestLog
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	items := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		items = append(items, gin.H{
			"timestamp":   row.Timestamp,
			"method":      row.Method,
			"path":        row.Path,
			"status_code": row.StatusCode,
			"latency_ms":  row.LatencyMS,
			"api_key_id":  row.APIKeyID,
			"upload_id":   row.UploadID,
			"ip":          row.IP,
			"user_agent":  row.UserAgent,
		})
	}
	c.JSON(http.StatusOK, gin.H{"logs": items, "count": len(items)})
}
