package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/handler"
	"github.com/iliyamo/office-seat-booking/internal/middleware"
)

// AdminRole is the JWT role accepted on /v1/admin.
const AdminRole = "ADMIN"

// RegisterAdmin registers administrative endpoints.  All routes require a
// valid JWT carrying the ADMIN role; tokens are minted by seatadmin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	mw = append(mw, middleware.JWTAuth(jwtSecret), middleware.RequireRole(AdminRole))
	g := e.Group("/v1/admin", mw...)
	g.PATCH("/inventory/:date/buffer", h.AdjustBuffer)
}
