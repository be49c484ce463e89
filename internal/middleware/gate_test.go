package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextgenrdp/api/internal/cache"
	"nextgenrdp/api/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type gateFixture struct {
	codec  *security.TokenCodec
	router *gin.Engine
	seen   *http.Header
}

func newGateFixture(t *testing.T, revocations RevocationChecker) gateFixture {
	t.Helper()

	codec, err := security.NewTokenCodec("gate-secret")
	require.NoError(t, err)

	seen := &http.Header{}
	router := gin.New()
	router.Use(Gate(GateConfig{
		Routes:      DefaultRouteTable(),
		Codec:       codec,
		Revocations: revocations,
		Log:         zerolog.Nop(),
	}))
	echo := func(c *gin.Context) {
		*seen = c.Request.Header.Clone()
		c.String(http.StatusOK, c.GetString(ContextUserID))
	}
	for _, p := range []string{"/", "/login", "/dashboard", "/dashboard/servers", "/admin/users", "/api/user/profile", "/api/admin/stats", "/api/auth/check", "/favicon.ico"} {
		router.GET(p, echo)
	}

	return gateFixture{codec: codec, router: router, seen: seen}
}

func (f gateFixture) token(t *testing.T, isAdmin bool, ttl time.Duration) string {
	t.Helper()

	token, err := f.codec.Issue("user-1", security.SessionClaims{Email: "user@example.com", IsAdmin: isAdmin}, ttl)
	require.NoError(t, err)
	return token
}

func (f gateFixture) do(target string, token string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func clearedCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestGate_PublicAndUnclassifiedPassThrough(t *testing.T) {
	f := newGateFixture(t, nil)

	for _, p := range []string{"/", "/login", "/api/auth/check", "/favicon.ico"} {
		rec := f.do(p, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}
}

func TestGate_PublicPathIgnoresGarbageCookie(t *testing.T) {
	f := newGateFixture(t, nil)

	rec := f.do("/login", "garbage", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, clearedCookie(rec))
}

func TestGate_MissingTokenRedirectsPages(t *testing.T) {
	f := newGateFixture(t, nil)

	rec := f.do("/dashboard/servers?tab=billing", "", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard%2Fservers%3Ftab%3Dbilling", rec.Header().Get("Location"))
}

func TestGate_MissingTokenOnAPIIs401(t *testing.T) {
	f := newGateFixture(t, nil)

	rec := f.do("/api/user/profile", "", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "unauthenticated", body["code"])
	assert.Equal(t, "/login?redirect=%2Fapi%2Fuser%2Fprofile", body["redirectTo"])
}

func TestGate_InvalidTokenClearsCookie(t *testing.T) {
	f := newGateFixture(t, nil)

	rec := f.do("/dashboard", "not-a-token", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, clearedCookie(rec))

	rec = f.do("/api/user/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, clearedCookie(rec))
	assert.Contains(t, rec.Body.String(), `"invalid_token"`)
}

func TestGate_ForeignSignatureRejected(t *testing.T) {
	f := newGateFixture(t, nil)

	other, err := security.NewTokenCodec("someone-else")
	require.NoError(t, err)
	token, err := other.Issue("user-1", security.SessionClaims{IsAdmin: true}, time.Hour)
	require.NoError(t, err)

	rec := f.do("/admin/users", token, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login?redirect=")
}

func TestGate_ExpiredTokenClearsCookie(t *testing.T) {
	f := newGateFixture(t, nil)

	past := f.codec.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	token, err := past.Issue("user-1", security.SessionClaims{}, time.Hour)
	require.NoError(t, err)

	rec := f.do("/api/user/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, clearedCookie(rec))
	assert.Contains(t, rec.Body.String(), `"token_expired"`)
}

func TestGate_ValidTokenInjectsUserID(t *testing.T) {
	f := newGateFixture(t, nil)

	rec := f.do("/dashboard", f.token(t, false, time.Hour), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
	assert.Equal(t, "user-1", f.seen.Get(HeaderUserID))
}

func TestGate_StripsClientSuppliedUserID(t *testing.T) {
	f := newGateFixture(t, nil)

	forged := http.Header{HeaderUserID: []string{"admin-0"}}

	rec := f.do("/favicon.ico", "", forged)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.seen.Get(HeaderUserID))

	rec = f.do("/dashboard", f.token(t, false, time.Hour), forged)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", f.seen.Get(HeaderUserID))
}

func TestGate_NonAdminSentToDashboard(t *testing.T) {
	f := newGateFixture(t, nil)
	token := f.token(t, false, time.Hour)

	for _, p := range []string{"/admin/users", "/api/admin/stats"} {
		rec := f.do(p, token, nil)
		assert.Equal(t, http.StatusFound, rec.Code, p)
		assert.Equal(t, DefaultDashboardPath, rec.Header().Get("Location"), p)
		assert.False(t, clearedCookie(rec), p)
	}
}

func TestGate_AdminAllowed(t *testing.T) {
	f := newGateFixture(t, nil)

	rec := f.do("/admin/users", f.token(t, true, time.Hour), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_RevokedTokenRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	denylist := cache.NewTokenDenylist(client)

	f := newGateFixture(t, denylist)
	token := f.token(t, false, time.Hour)

	claims, err := f.codec.Verify(token)
	require.NoError(t, err)
	require.NoError(t, denylist.Revoke(context.Background(), claims.ID, time.Hour))

	rec := f.do("/api/user/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token_revoked"`)
	assert.True(t, clearedCookie(rec))

	rec = f.do("/dashboard", f.token(t, false, time.Hour), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type brokenChecker struct{}

func (brokenChecker) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestGate_RevocationOutageFailsOpen(t *testing.T) {
	f := newGateFixture(t, brokenChecker{})

	rec := f.do("/dashboard", f.token(t, false, time.Hour), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
