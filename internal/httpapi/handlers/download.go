package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/axionslab/datavault/internal/apierr"
	"github.com/axionslab/datavault/internal/download"
	"github.com/axionslab/datavault/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// DownloadHandler redeems one-time download tokens. The route carries no
// other credential; the token itself is the proof of authorization.
type DownloadHandler struct {
	tokens *download.Manager
}

// NewDownloadHandler constructs a DownloadHandler.
func NewDownloadHandler(tokens *download.Manager) *DownloadHandler {
	return &DownloadHandler{tokens: tokens}
}

// Redeem exchanges the path token for a presigned URL and redirects to it.
// A token works exactly once; every later attempt observes Gone.
func (h *DownloadHandler) Redeem(c *gin.Context) {
	raw := c.Param("token")
	reqCtx := download.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	url, outcome, errRedeem := h.tokens.Redeem(c.Request.Context(), raw, reqCtx)
	if len(outcome.Windows) > 0 {
		ratelimit.ApplyHeaders(c, ratelimit.BucketGeneral, outcome)
	}
	if errRedeem != nil {
		if errors.Is(errRedeem, apierr.ErrRateLimited) {
			c.Header("Retry-After", strconv.FormatInt(outcome.RetryAfter, 10))
		}
		c.JSON(apierr.Status(errRedeem), gin.H{"error": apierr.Message(errRedeem)})
		return
	}

	c.Redirect(http.StatusFound, url)
}
