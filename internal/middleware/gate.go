package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nextgenrdp/api/internal/security"
)

const (
	// HeaderUserID carries the verified subject to downstream handlers. Any
	// client-supplied value is dropped before classification.
	HeaderUserID = "X-User-Id"

	ContextUserID = "user_id"
	ContextClaims = "session_claims"

	DefaultLoginPath     = "/login"
	DefaultDashboardPath = "/dashboard"
)

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type GateConfig struct {
	Routes        RouteTable
	Codec         *security.TokenCodec
	Revocations   RevocationChecker
	SecureCookies bool
	LoginPath     string
	DashboardPath string
	Log           zerolog.Logger
	Now           func() time.Time
}

// Gate classifies every request once and enforces token presence, validity
// and the admin claim on protected and admin paths.
func Gate(cfg GateConfig) gin.HandlerFunc {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = DefaultDashboardPath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(c *gin.Context) {
		c.Request.Header.Del(HeaderUserID)

		path := c.Request.URL.Path
		class := cfg.Routes.Classify(path)
		if class != ClassProtected && class != ClassAdmin {
			c.Next()
			return
		}

		token := SessionToken(c)
		if token == "" {
			deny(c, cfg, "unauthenticated", "Authentication required")
			return
		}

		claims, err := cfg.Codec.Verify(token)
		if err != nil {
			cfg.Log.Debug().Err(err).Str("path", path).Msg("gate: invalid session token")
			ClearSessionCookie(c, cfg.SecureCookies)
			deny(c, cfg, "invalid_token", "Invalid session")
			return
		}
		if claims.Expired(cfg.Now()) {
			cfg.Log.Debug().Str("path", path).Str("user_id", claims.UserID()).Msg("gate: expired session token")
			ClearSessionCookie(c, cfg.SecureCookies)
			deny(c, cfg, "token_expired", "Session expired")
			return
		}

		if cfg.Revocations != nil {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				cfg.Log.Warn().Err(err).Msg("gate: revocation check failed, allowing")
			} else if revoked {
				ClearSessionCookie(c, cfg.SecureCookies)
				deny(c, cfg, "token_revoked", "Session ended")
				return
			}
		}

		if class == ClassAdmin && !claims.IsAdmin {
			cfg.Log.Info().Str("path", path).Str("user_id", claims.UserID()).Msg("gate: non-admin demoted to dashboard")
			c.Redirect(http.StatusFound, cfg.DashboardPath)
			c.Abort()
			return
		}

		c.Request.Header.Set(HeaderUserID, claims.UserID())
		c.Set(ContextUserID, claims.UserID())
		c.Set(ContextClaims, *claims)
		c.Next()
	}
}

// deny answers API paths with 401 JSON and page paths with a login redirect
// that carries the original target.
func deny(c *gin.Context, cfg GateConfig, code string, message string) {
	target := loginRedirect(cfg.LoginPath, c.Request.URL)
	if IsAPIPath(c.Request.URL.Path) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success":       false,
			"authenticated": false,
			"error":         message,
			"code":          code,
			"redirectTo":    target,
		})
		return
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

func loginRedirect(loginPath string, original *url.URL) string {
	q := url.Values{}
	q.Set("redirect", original.RequestURI())
	return loginPath + "?" + q.Encode()
}
