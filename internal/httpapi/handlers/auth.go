package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/auth"
	"github.com/axionslab/datavault/internal/models"
	"github.com/axionslab/datavault/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler serves registration, login, logout, and the legacy single
// API key flow.
type AuthHandler struct {
	db       *gorm.DB
	verifier *auth.Verifier
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, verifier *auth.Verifier) *AuthHandler {
	return &AuthHandler{db: db, verifier: verifier}
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(c *gin.Context) {
	var body credentialsBody
	if errBindJSON := c.ShouldBindJSON(&body); errBindJSON != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or password"})
		return
	}

	var existing models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).
		First(&existing).Error
	switch {
	case errFind == nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
		return
	case !errors.Is(errFind, gorm.ErrRecordNotFound):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	user := models.User{Username: username, Password: hash}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully. Please log in."})
}

// Login verifies a password and issues a session token plus a stateless
// signed token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body credentialsBody
	if errBindJSON := c.ShouldBindJSON(&body); errBindJSON != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	user, errVerify := h.verifier.VerifyPassword(c.Request.Context(), strings.TrimSpace(body.Username), body.Password)
	if errVerify != nil {
		c.JSON(apierr.Status(errVerify), gin.H{"error": apierr.Message(errVerify)})
		return
	}

	sessionToken, sessionExpiresAt, errSession := h.verifier.CreateSession(c.Request.Context(), user.ID)
	if errSession != nil {
		c.JSON(apierr.Status(errSession), gin.H{"error": apierr.Message(errSession)})
		return
	}
	signedToken, signedExpiresAt, errSign := h.verifier.IssueSignedToken(user.ID, user.Username)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "Login successful. Use apikey/create to get an API key.",
		"session_token":      sessionToken,
		"session_expires_at": sessionExpiresAt,
		"jwt":                signedToken,
		"jwt_expires_at":     signedExpiresAt,
	})
}

// Logout revokes the presented session token. Unknown tokens are accepted;
// logout is idempotent.
func (h *AuthHandler) Logout(c *gin.Context) {
	bearer, errBearer := auth.BearerToken(c.GetHeader("Authorization"))
	if errBearer != nil {
		c.JSON(apierr.Status(errBearer), gin.H{"error": apierr.Message(errBearer)})
		return
	}
	if errRevoke := h.verifier.RevokeSession(c.Request.Context(), bearer); errRevoke != nil {
		c.JSON(apierr.Status(errRevoke), gin.H{"error": apierr.Message(errRevoke)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

type legacyKeyBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Replace  bool   `json:"replace"`
}

// CreateLegacyKey returns the user's single legacy API key, minting or
// rotating it on demand. Kept for pre-multi-key clients; new integrations
// use the /auth/apikeys table flow.
func (h *AuthHandler) CreateLegacyKey(c *gin.Context) {
	var body legacyKeyBody
	if errBindJSON := c.ShouldBindJSON(&body); errBindJSON != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	user, errVerify := h.verifier.VerifyPassword(c.Request.Context(), strings.TrimSpace(body.Username), body.Password)
	if errVerify != nil {
		c.JSON(apierr.Status(errVerify), gin.H{"error": apierr.Message(errVerify)})
		return
	}

	if user.LegacyAPIKey != nil && *user.LegacyAPIKey != "" && !body.Replace {
		c.JSON(http.StatusOK, gin.H{
			"api_key": *user.LegacyAPIKey,
			"message": "Existing API key returned",
		})
		return
	}

	newKey, errGenerate := security.GenerateHexToken()
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate api key failed"})
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(user).
		Update("legacy_api_key", newKey).Error; errUpdate != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": apierr.Message(apierr.ErrStoreUnavailable)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"api_key": newKey,
		"message": "New API key created",
	})
}
