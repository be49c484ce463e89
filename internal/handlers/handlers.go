package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nextgenrdp/api/internal/config"
	"nextgenrdp/api/internal/service"
)

type HandlerSet struct {
	log   zerolog.Logger
	cfg   *config.AppConfig
	auth  *service.AuthService
	users service.UserStore
	cache redis.UniversalClient
}

// NewHandlerSet wires the HTTP surface. cache may be nil when revocation is
// disabled.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, auth *service.AuthService, users service.UserStore, cache redis.UniversalClient) HandlerSet {
	return HandlerSet{
		log:   log,
		cfg:   cfg,
		auth:  auth,
		users: users,
		cache: cache,
	}
}

// Register mounts the routes under router, which is expected to be the /api
// group. Access control is enforced by the global gate, not per group.
func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.RegisterUser)
		auth.GET("/check", h.Check)
		auth.POST("/logout", h.Logout)
	}

	user := router.Group("/user")
	user.GET("/profile", h.Profile)

	admin := router.Group("/admin")
	admin.POST("/users/:id/unlock", h.UnlockUser)
}
