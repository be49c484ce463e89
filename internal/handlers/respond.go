package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nextgenrdp/api/internal/service"
)

type errorResponse struct {
	Success           bool              `json:"success"`
	Error             string            `json:"error"`
	Code              string            `json:"code"`
	Fields            map[string]string `json:"fields,omitempty"`
	AttemptsRemaining *int              `json:"attemptsRemaining,omitempty"`
	Details           string            `json:"details,omitempty"`
}

type failure struct {
	status  int
	code    string
	message string
}

var failures = []struct {
	err error
	failure
}{
	{service.ErrValidation, failure{http.StatusBadRequest, "validation_error", "Invalid request"}},
	{service.ErrInvalidCredentials, failure{http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"}},
	{service.ErrAccountLocked, failure{http.StatusForbidden, "account_locked", "Account locked due to too many failed login attempts"}},
	{service.ErrEmailTaken, failure{http.StatusConflict, "email_taken", "An account with this email already exists"}},
	{service.ErrUnauthenticated, failure{http.StatusUnauthorized, "unauthenticated", "Authentication required"}},
	{service.ErrInvalidToken, failure{http.StatusUnauthorized, "invalid_token", "Invalid session"}},
	{service.ErrTokenExpired, failure{http.StatusUnauthorized, "token_expired", "Session expired"}},
	{service.ErrUserNotFound, failure{http.StatusUnauthorized, "user_not_found", "User not found"}},
}

var internalFailure = failure{http.StatusInternalServerError, "internal", "Internal server error"}

func classify(err error) failure {
	for _, f := range failures {
		if errors.Is(err, f.err) {
			return f.failure
		}
	}
	return internalFailure
}

// respondError writes the stable error envelope. Internal error text is only
// attached outside production.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	f := classify(err)
	h.respondFailure(c, f, err)
}

func (h HandlerSet) respondFailure(c *gin.Context, f failure, err error) {
	body := errorResponse{
		Success: false,
		Error:   f.message,
		Code:    f.code,
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}

	var lf *service.LoginFailure
	if errors.As(err, &lf) {
		remaining := lf.AttemptsRemaining
		body.AttemptsRemaining = &remaining
	}

	if f.status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		if !h.cfg.IsProduction() {
			body.Details = err.Error()
		}
	}

	c.AbortWithStatusJSON(f.status, body)
}

func badBody(err error) error {
	return &service.ValidationError{Fields: map[string]string{"body": "must be a JSON object: " + err.Error()}}
}
