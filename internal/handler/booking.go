package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/office-seat-booking/internal/model"
    "github.com/iliyamo/office-seat-booking/internal/service"
)

// BookingHandler exposes the booking engine under /v1.  Callers identify
// the employee by user_id; authenticating employees is left to the
// gateway in front of the service.
type BookingHandler struct {
    Svc *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
    if svc == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{Svc: svc}
}

type bookingRequest struct {
    UserID uint64 `json:"user_id"`
    Date   string `json:"date"`
}

func (r bookingRequest) toService() service.BookRequest {
    return service.BookRequest{UserID: r.UserID, Date: r.Date}
}

// Book handles POST /v1/bookings.  On success it returns 201 with the
// booking, including the seat type that was granted.
func (h *BookingHandler) Book(c echo.Context) error {
    var req bookingRequest
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid JSON body")
    }
    b, err := h.Svc.Book(c.Request().Context(), req.toService())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"booking": toBooking(b)})
}

// Cancel handles DELETE /v1/bookings.  The body names the user and date;
// the cancelled booking is returned.
func (h *BookingHandler) Cancel(c echo.Context) error {
    var req bookingRequest
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid JSON body")
    }
    b, err := h.Svc.Cancel(c.Request().Context(), req.toService())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": toBooking(b), "message": "booking cancelled"})
}

// List handles GET /v1/bookings?user_id=&include_past=&include_cancelled=.
func (h *BookingHandler) List(c echo.Context) error {
    userID, err := queryUint(c, "user_id")
    if err != nil {
        return badRequest(c, err.Error())
    }
    includePast, err := queryBool(c, "include_past")
    if err != nil {
        return badRequest(c, err.Error())
    }
    includeCancelled, err := queryBool(c, "include_cancelled")
    if err != nil {
        return badRequest(c, err.Error())
    }
    list, err := h.Svc.ListBookings(c.Request().Context(), service.ListRequest{
        UserID:           userID,
        IncludePast:      includePast,
        IncludeCancelled: includeCancelled,
    })
    if err != nil {
        return writeError(c, err)
    }
    out := make([]bookingResponse, 0, len(list))
    for _, b := range list {
        out = append(out, toBooking(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Availability handles GET /v1/availability?date=.  A day with no
// bookings yet reports the default capacities.
func (h *BookingHandler) Availability(c echo.Context) error {
    a, err := h.Svc.Availability(c.Request().Context(), c.QueryParam("date"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toAvailability(a))
}

// Eligibility handles GET /v1/eligibility?user_id=&date=.
func (h *BookingHandler) Eligibility(c echo.Context) error {
    userID, err := queryUint(c, "user_id")
    if err != nil {
        return badRequest(c, err.Error())
    }
    r, err := h.Svc.Eligibility(c.Request().Context(), userID, c.QueryParam("date"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toEligibility(r))
}

// Schedule handles GET /v1/schedule?from=&to=.  Both bounds default to the
// current Monday and the Sunday two weeks later, one full rotation.
func (h *BookingHandler) Schedule(c echo.Context) error {
    from, to := c.QueryParam("from"), c.QueryParam("to")
    if from == "" || to == "" {
        monday := mondayOf(h.Svc.Today())
        if from == "" {
            from = model.FormatDate(monday)
        }
        if to == "" {
            start, err := model.ParseDate(from, h.Svc.Location())
            if err != nil {
                return writeError(c, err)
            }
            to = model.FormatDate(start.AddDate(0, 0, 13))
        }
    }
    days, err := h.Svc.Schedule(from, to)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"from": from, "to": to, "days": toDays(days)})
}

// ScheduleUsesDefaults reports whether a schedule request leaves a bound
// to the current date.  Such answers change every Monday and must not be
// cached.
func ScheduleUsesDefaults(c echo.Context) bool {
    return c.QueryParam("from") == "" || c.QueryParam("to") == ""
}

func mondayOf(d time.Time) time.Time {
    return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
}

func queryUint(c echo.Context, name string) (uint64, error) {
    raw := c.QueryParam(name)
    if raw == "" {
        return 0, nil
    }
    v, err := strconv.ParseUint(raw, 10, 64)
    if err != nil {
        return 0, &paramError{name: name, value: raw}
    }
    return v, nil
}

func queryBool(c echo.Context, name string) (bool, error) {
    raw := c.QueryParam(name)
    if raw == "" {
        return false, nil
    }
    v, err := strconv.ParseBool(raw)
    if err != nil {
        return false, &paramError{name: name, value: raw}
    }
    return v, nil
}

type paramError struct{ name, value string }

func (e *paramError) Error() string { return "invalid " + e.name + ": " + strconv.Quote(e.value) }
