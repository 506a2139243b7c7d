package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/campusflow/school-api/internal/handler"
)

// LoginRateLimit guards the credential endpoints against brute force with a
// fixed window per client IP + route, counted in Redis so the limit holds
// across instances. Disabled when the limit is zero or Redis is absent.
func LoginRateLimit(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if limit <= 0 || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("auth:ratelimit:%s:%s:%d",
				c.Path(), c.RealIP(), time.Now().Unix()/int64(window.Seconds()))

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// A broken limiter must not lock out logins.
				logrus.WithError(err).Error("ratelimit: redis incr failed")
				return next(c)
			}
			if n == 1 {
				rdb.Expire(ctx, key, window)
			}
			if n > int64(limit) {
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				return handler.Error(c, "Too many attempts, try again later", http.StatusTooManyRequests)
			}
			return next(c)
		}
	}
}
