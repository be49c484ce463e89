package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nextgenrdp/api/internal/middleware"
	"nextgenrdp/api/internal/models"
	"nextgenrdp/api/internal/service"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool           `json:"success"`
	User    models.Profile `json:"user"`
}

type checkResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *models.Profile `json:"user,omitempty"`
	Error         string          `json:"error,omitempty"`
	Code          string          `json:"code,omitempty"`
	RedirectTo    string          `json:"redirectTo,omitempty"`
	Details       string          `json:"details,omitempty"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badBody(err))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, result.Token, result.TTL, h.cfg.IsProduction())
	c.JSON(http.StatusOK, authResponse{Success: true, User: result.User.Profile()})
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badBody(err))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, result.Token, result.TTL, h.cfg.IsProduction())
	c.JSON(http.StatusCreated, authResponse{Success: true, User: result.User.Profile()})
}

// Check reports whether the session cookie still maps to an active account.
func (h HandlerSet) Check(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")

	user, err := h.auth.CheckSession(c.Request.Context(), middleware.SessionToken(c))
	if err == nil {
		profile := user.Profile()
		c.JSON(http.StatusOK, checkResponse{Authenticated: true, User: &profile})
		return
	}

	f := classify(err)
	body := checkResponse{
		Authenticated: false,
		Error:         f.message,
		Code:          f.code,
		RedirectTo:    middleware.DefaultLoginPath,
	}
	if f.status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("session check failed")
		if !h.cfg.IsProduction() {
			body.Details = err.Error()
		}
		c.JSON(f.status, body)
		return
	}
	if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrTokenExpired) {
		middleware.ClearSessionCookie(c, h.cfg.IsProduction())
	}

	c.JSON(f.status, body)
}

// Logout always clears the cookie. Server-side revocation, when enabled, is
// attempted first and its failure is only logged.
func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		h.log.Warn().Err(err).Msg("token revocation failed on logout")
	}

	middleware.ClearSessionCookie(c, h.cfg.IsProduction())
	c.JSON(http.StatusOK, gin.H{"success": true})
}
