package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/office-seat-booking/internal/service"
)

// AdminHandler serves /v1/admin.  Routes are guarded by JWTAuth and
// RequireRole("ADMIN") in the router.
type AdminHandler struct {
    Svc *service.BookingService
}

func NewAdminHandler(svc *service.BookingService) *AdminHandler {
    if svc == nil {
        panic("nil service passed to NewAdminHandler")
    }
    return &AdminHandler{Svc: svc}
}

type adjustBufferRequest struct {
    Delta *int `json:"delta"`
}

// AdjustBuffer handles PATCH /v1/admin/inventory/:date/buffer with body
// {"delta": N}.  It returns the updated inventory row.
func (h *AdminHandler) AdjustBuffer(c echo.Context) error {
    var req adjustBufferRequest
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid JSON body")
    }
    if req.Delta == nil {
        return badRequest(c, "delta is required")
    }
    inv, err := h.Svc.AdjustBufferCapacity(c.Request().Context(), c.Param("date"), *req.Delta)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"inventory": toInventory(inv), "availability": toAvailability(inv.Availability())})
}
