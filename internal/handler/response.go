package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campusflow/school-api/internal/auth"
	"github.com/campusflow/school-api/internal/permission"
)

// Envelope is the uniform response shape produced by every endpoint:
// {success, status, message, data}. Success follows the status code unless
// overridden.
type Envelope struct {
	Success bool        `json:"success"`
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success writes a 2xx envelope.
func Success(c echo.Context, data interface{}, message string, code int) error {
	return c.JSON(code, Envelope{Success: true, Status: code, Message: message, Data: data})
}

// Error writes a failure envelope with a nil data field.
func Error(c echo.Context, message string, code int) error {
	return c.JSON(code, Envelope{Success: false, Status: code, Message: message, Data: nil})
}

// Unauthorized writes the standard 401 envelope.
func Unauthorized(c echo.Context, reason string) error {
	return Error(c, "Unauthorized: "+reason, http.StatusUnauthorized)
}

// PermissionDenied writes the standard 403 envelope for a failed
// module/action check.
func PermissionDenied(c echo.Context, moduleKey, action string) error {
	return Error(c, fmt.Sprintf("Permission denied for %s → %s", moduleKey, action), http.StatusForbidden)
}

// Context keys set by the request gate.
const (
	ContextUserKey      = "user"
	ContextPermCacheKey = "perm_cache"
)

// CurrentUser returns the decoded identity attached by the request gate, or
// nil for anonymous requests.
func CurrentUser(c echo.Context) *auth.Claims {
	if claims, ok := c.Get(ContextUserKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// PermCache returns the request-scoped permission cache. A fresh cache is
// returned when the gate did not run (tests, public routes), so permission
// checks always have one.
func PermCache(c echo.Context) *permission.Cache {
	if cache, ok := c.Get(ContextPermCacheKey).(*permission.Cache); ok {
		return cache
	}
	return permission.NewCache()
}

// actorID returns the authenticated user's id for last_accessed_by audit
// pointers.
func actorID(c echo.Context) *uint64 {
	if u := CurrentUser(c); u != nil {
		id := u.ID
		return &id
	}
	return nil
}
