package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/campusflow/school-api/internal/auth"
	"github.com/campusflow/school-api/internal/handler"
	"github.com/campusflow/school-api/internal/middleware"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Roles       *handler.RoleHandler
	Modules     *handler.ModuleHandler
	Permissions *handler.ModulePermissionHandler
	Students    *handler.StudentHandler
}

// Register wires the full route table. Credential endpoints sit outside the
// request gate so callers can obtain tokens; every resource route passes
// through it. The gate itself lets GET and OPTIONS through, so read routes
// stay public while mutations require a verified token.
func Register(e *echo.Echo, h Handlers, tokens *auth.TokenService, blacklist *auth.Blacklist, rdb *redis.Client, loginLimit int, loginWindow time.Duration) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.Use(middleware.Metrics())

	// Credential lifecycle. Login-style endpoints are rate limited per IP.
	authGroup := api.Group("/auth")
	limited := middleware.LoginRateLimit(rdb, loginLimit, loginWindow)
	authGroup.POST("/login", h.Auth.Login, limited)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.POST("/mobile/register", h.Auth.MobileRegister, limited)
	authGroup.POST("/mobile/login", h.Auth.MobileLogin, limited)

	gated := api.Group("", middleware.Gate(tokens, blacklist))

	users := gated.Group("/users")
	users.GET("", h.Users.Index)
	users.GET("/:id", h.Users.Show)
	users.POST("", h.Users.Create)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	roles := gated.Group("/roles")
	roles.GET("", h.Roles.Index)
	roles.GET("/:id", h.Roles.Show)
	roles.POST("", h.Roles.Create)
	roles.PUT("/:id", h.Roles.Update)
	roles.DELETE("/:id", h.Roles.Delete)

	modules := gated.Group("/modules")
	modules.GET("", h.Modules.Index)
	modules.GET("/:id", h.Modules.Show)
	modules.POST("", h.Modules.Create)
	modules.PUT("/:id", h.Modules.Update)
	modules.DELETE("/:id", h.Modules.Delete)

	perms := gated.Group("/module-permissions")
	perms.GET("", h.Permissions.Index)
	perms.POST("", h.Permissions.Create)
	perms.DELETE("/:id", h.Permissions.Delete)

	students := gated.Group("/students")
	students.GET("", h.Students.Index)
	students.GET("/:id", h.Students.Show)
	students.POST("", h.Students.Create)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
}
