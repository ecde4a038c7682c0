package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/axionslab/datavault/internal/auth"
	"github.com/axionslab/datavault/internal/models"
	"github.com/gin-gonic/gin"
)

func limitedRouter(t *testing.T, manager *Manager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/limited",
		func(c *gin.Context) {
			auth.SetGinContext(c, &models.User{ID: 1}, auth.Context{
				UserID:      1,
				IdentityKey: "user:1",
				Scheme:      auth.SchemeSession,
			})
		},
		Require(manager, BucketGeneral),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)
	return engine
}

func TestRequireSetsHeadersAndRejects(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	policies := map[string][]Limit{
		BucketGeneral: {{Name: "minute", Max: 1, WindowSeconds: WindowMinute}},
	}
	manager := NewManager(NewMemoryLimiter(), policies, RedisConfig{}, func() time.Time { return now })
	engine := limitedRouter(t, manager)

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/limited", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	if got := first.Header().Get("X-RateLimit-Limit-general-minute"); got != "1" {
		t.Fatalf("expected limit header 1, got %q", got)
	}
	if got := first.Header().Get("X-RateLimit-Remaining-general-minute"); got != "0" {
		t.Fatalf("expected remaining header 0, got %q", got)
	}
	if got := first.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after on admitted request, got %q", got)
	}

	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/limited", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got == "" || got == "0" {
		t.Fatalf("expected positive retry-after, got %q", got)
	}
	if got := second.Header().Get("X-RateLimit-Remaining-general-minute"); got != "0" {
		t.Fatalf("expected remaining header on rejection, got %q", got)
	}
}

func TestRequireWithoutAuthContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := NewManager(NewMemoryLimiter(), nil, RedisConfig{}, nil)
	engine := gin.New()
	engine.GET("/limited", Require(manager, BucketGeneral), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
