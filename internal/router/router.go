package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/handler"
)

// RegisterRoutes registers routes that need neither rate limiting nor
// authentication.  db may be nil, in which case /healthz only reports that
// the process is up.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}
