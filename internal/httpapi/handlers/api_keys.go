package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/auth"
	"github.com/axionslab/datavault/internal/models"
	"github.com/axionslab/datavault/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// APIKeyHandler manages per-user API keys. All routes are session-scheme
// authenticated.
type APIKeyHandler struct {
	db       *gorm.DB
	verifier *auth.Verifier
}

// NewAPIKeyHandler constructs an APIKeyHandler.
func NewAPIKeyHandler(db *gorm.DB, verifier *auth.Verifier) *APIKeyHandler {
	return &APIKeyHandler{db: db, verifier: verifier}
}

// Create issues a new API key. The raw key appears in this response only;
// the store keeps its keyed hash and last four characters.
func (h *APIKeyHandler) Create(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if errBindJSON := c.ShouldBindJSON(&body); errBindJSON != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rawKey, errGenerate := security.GenerateToken()
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate api key failed"})
		return
	}

	now := time.Now().UTC()
	row := models.APIKey{
		UserID:    user.ID,
		Name:      strings.TrimSpace(body.Name),
		KeyHash:   h.verifier.HashAPIKey(rawKey),
		Last4:     rawKey[len(rawKey)-4:],
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"key_id":     row.ID,
		"name":       row.Name,
		"last4":      row.Last4,
		"created_at": row.CreatedAt,
		"api_key":    rawKey,
	})
}

// List returns the caller's keys, newest first. Raw keys are never included.
func (h *APIKeyHandler) List(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}

	var rows []models.APIKey
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	items := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		items = append(items, gin.H{
			"key_id":       row.ID,
			"name":         row.Name,
			"last4":        row.Last4,
			"created_at":   row.CreatedAt,
			"last_used_at": row.LastUsedAt,
			"revoked_at":   row.RevokedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"keys": items, "total": len(items)})
}

// Revoke tombstones a key. The row is kept; verification treats revoked
// and missing identically.
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	user, _, ok := auth.FromGinContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apierr.Message(apierr.ErrUnauthorized)})
		return
	}

	keyID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return
	}

	var row models.APIKey
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", keyID, user.ID).
		First(&row).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	case errFind != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	if row.Revoked() {
		c.JSON(http.StatusOK, gin.H{"message": "Key already revoked", "key_id": row.ID})
		return
	}

	now := time.Now().UTC()
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&row).
		Update("revoked_at", now).Error; errUpdate != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked", "key_id": row.ID})
}
