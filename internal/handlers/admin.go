package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nextgenrdp/api/internal/middleware"
	"nextgenrdp/api/internal/service"
)

func (h HandlerSet) UnlockUser(c *gin.Context) {
	userID := c.Param("id")

	err := h.auth.Unlock(c.Request.Context(), userID)
	if errors.Is(err, service.ErrUserNotFound) {
		h.respondFailure(c, failure{http.StatusNotFound, "user_not_found", "User not found"}, err)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().
		Str("user_id", userID).
		Str("admin_id", c.GetHeader(middleware.HeaderUserID)).
		Msg("admin unlocked account")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
