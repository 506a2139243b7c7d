package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusflow/school-api/internal/auth"
	"github.com/campusflow/school-api/internal/handler"
)

func gateFixture(t *testing.T) (*auth.TokenService, *auth.Blacklist, echo.MiddlewareFunc) {
	t.Helper()
	mr := miniredis.RunT(t)
	tokens := auth.NewTokenService("gate-test-secret")
	blacklist := auth.NewBlacklist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return tokens, blacklist, Gate(tokens, blacklist)
}

func runGate(t *testing.T, gate echo.MiddlewareFunc, method, bearer string) (*httptest.ResponseRecorder, *auth.Claims) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/api/v1/students", nil)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *auth.Claims
	h := gate(func(c echo.Context) error {
		seen = handler.CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, seen
}

func TestGateAllowsGetWithoutToken(t *testing.T) {
	_, _, gate := gateFixture(t)
	rec, seen := runGate(t, gate, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)
}

func TestGateAttachesIdentityOnGet(t *testing.T) {
	tokens, _, gate := gateFixture(t)
	token, err := tokens.CreateAccessToken(7, 2, "teacher", time.Hour)
	require.NoError(t, err)

	rec, seen := runGate(t, gate, http.MethodGet, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint64(7), seen.ID)
	assert.Equal(t, "teacher", seen.RoleName)
}

func TestGateRejectsMissingHeader(t *testing.T) {
	_, _, gate := gateFixture(t)
	rec, _ := runGate(t, gate, http.MethodPost, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var env handler.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Unauthorized: Missing Authorization header", env.Message)
	assert.False(t, env.Success)
}

func TestGateRejectsMalformedHeader(t *testing.T) {
	_, _, gate := gateFixture(t)
	rec, _ := runGate(t, gate, http.MethodPost, "Token abc123")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var env handler.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Unauthorized: Invalid Authorization header format", env.Message)
}

func TestGateRejectsInvalidToken(t *testing.T) {
	_, _, gate := gateFixture(t)
	rec, _ := runGate(t, gate, http.MethodPost, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var env handler.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Unauthorized: Invalid or expired token", env.Message)
}

func TestGateRejectsBlacklistedToken(t *testing.T) {
	tokens, blacklist, gate := gateFixture(t)
	token, err := tokens.CreateAccessToken(7, 2, "teacher", time.Hour)
	require.NoError(t, err)
	require.NoError(t, blacklist.Add(context.Background(), token, time.Hour))

	rec, _ := runGate(t, gate, http.MethodPost, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var env handler.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Unauthorized: Token expired or logged out", env.Message)
}

func TestGateAttachesClaimsForMutation(t *testing.T) {
	tokens, _, gate := gateFixture(t)
	token, err := tokens.CreateAccessToken(7, 2, "teacher", time.Hour)
	require.NoError(t, err)

	rec, seen := runGate(t, gate, http.MethodPost, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint64(7), seen.ID)
	assert.Equal(t, uint64(2), seen.RoleID)
}
