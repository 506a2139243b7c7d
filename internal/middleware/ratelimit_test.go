package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hitLimiter(t *testing.T, mw echo.MiddlewareFunc) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/auth/login")

	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	return rec.Code
}

func TestLoginRateLimitBlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mw := LoginRateLimit(rdb, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hitLimiter(t, mw))
	}
	assert.Equal(t, http.StatusTooManyRequests, hitLimiter(t, mw))
}

func TestLoginRateLimitDisabled(t *testing.T) {
	mw := LoginRateLimit(nil, 1, time.Minute)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hitLimiter(t, mw))
	}
}

func TestLoginRateLimitFailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mw := LoginRateLimit(rdb, 1, time.Minute)

	assert.Equal(t, http.StatusOK, hitLimiter(t, mw))
	mr.Close()
	assert.Equal(t, http.StatusOK, hitLimiter(t, mw))
}
