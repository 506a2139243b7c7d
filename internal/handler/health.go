package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports service liveness for load balancers and monitoring.
func Health(c echo.Context) error {
	return Success(c, echo.Map{"status": "ok"}, "OK", http.StatusOK)
}
