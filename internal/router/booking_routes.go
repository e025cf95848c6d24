package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/handler"
)

// RegisterBooking registers the employee-facing endpoints under /v1.  mw is
// applied to the whole group (the rate limiter in production); cache wraps
// only the schedule, whose answer never changes for a given range; build it
// with handler.ScheduleUsesDefaults as skipper so open ranges stay fresh.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, cache echo.MiddlewareFunc, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)
	g.POST("/bookings", h.Book)
	g.DELETE("/bookings", h.Cancel)
	g.GET("/bookings", h.List)
	g.GET("/availability", h.Availability)
	g.GET("/eligibility", h.Eligibility)
	if cache != nil {
		g.GET("/schedule", h.Schedule, cache)
	} else {
		g.GET("/schedule", h.Schedule)
	}
}
