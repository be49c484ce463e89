package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nextgenrdp/api/internal/middleware"
	"nextgenrdp/api/internal/service"
)

// Profile trusts the subject injected by the gate and does not re-verify
// the token.
func (h HandlerSet) Profile(c *gin.Context) {
	userID := c.GetHeader(middleware.HeaderUserID)
	if userID == "" {
		h.respondError(c, service.ErrUnauthenticated)
		return
	}

	profile, err := h.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
}
