package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Database:    "ok",
		Cache:       "disabled",
		Environment: h.cfg.Environment,
	}
	status := http.StatusOK

	if err := h.users.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "error"
		status = http.StatusServiceUnavailable
		h.log.Error().Err(err).Msg("database ping failed")
	}

	// the denylist fails open, so a cache outage does not degrade the service
	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			resp.Cache = "error"
			h.log.Warn().Err(err).Msg("redis ping failed")
		}
	}

	c.JSON(status, resp)
}
