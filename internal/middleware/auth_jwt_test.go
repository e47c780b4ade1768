package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// serve runs h behind the given middlewares and returns the recorder.
func serve(t *testing.T, req *http.Request, h echo.HandlerFunc, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.GET("/", h, mws...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPrincipal_ResolvesUserAndSession(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "42",
		"role": RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(SessionHeader, "sess-1")

	var gotUser int64
	var gotSession, gotRole string
	rec := serve(t, req, func(c echo.Context) error {
		gotUser, _ = UserID(c)
		gotSession = SessionID(c)
		gotRole, _ = c.Get(CtxUserRoleKey).(string)
		p := PrincipalFrom(c)
		assert.True(t, p.IsUser())
		return c.NoContent(http.StatusOK)
	}, Principal(cfg))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), gotUser)
	assert.Equal(t, "sess-1", gotSession)
	assert.Equal(t, RoleAdmin, gotRole)
}

func TestPrincipal_AnonymousSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "sess-1")

	rec := serve(t, req, func(c echo.Context) error {
		p := PrincipalFrom(c)
		assert.True(t, p.IsAnonymous())
		assert.Equal(t, "sess-1", p.SessionToken)
		return c.NoContent(http.StatusOK)
	}, Principal(config.Config{JWTSecret: testSecret}))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPrincipal_RejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"wrong secret": "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": 1}),
		"expired":      "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Hour).Unix()}),
		"no sub":       "Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "USER"}),
		"not bearer":   "Basic abc",
		"empty bearer": "Bearer ",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", header)

			rec := serve(t, req, func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, Principal(config.Config{JWTSecret: testSecret}))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "sess-1")

	rec := serve(t, req, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, Principal(config.Config{JWTSecret: testSecret}), RequireUser())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoleGuard(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	buyer := httptest.NewRequest(http.MethodGet, "/", nil)
	buyer.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"sub": 7, "role": "USER"}))
	assert.Equal(t, http.StatusForbidden, serve(t, buyer, ok, Principal(cfg), AdminRoleGuard()).Code)

	admin := httptest.NewRequest(http.MethodGet, "/", nil)
	admin.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"sub": 1, "role": RoleAdmin}))
	assert.Equal(t, http.StatusOK, serve(t, admin, ok, Principal(cfg), AdminRoleGuard()).Code)

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(t, anon, ok, Principal(cfg), AdminRoleGuard()).Code)
}
