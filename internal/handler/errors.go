package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/office-seat-booking/internal/model"
)

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
    switch model.Code(err) {
    case "validation_error":
        return http.StatusBadRequest
    case "ineligible":
        return http.StatusForbidden
    case "duplicate_booking", "capacity_exhausted":
        return http.StatusConflict
    case "not_found":
        return http.StatusNotFound
    default:
        return http.StatusInternalServerError
    }
}

// writeError renders err as {"error": code, "message": msg}.  Ineligible
// errors also carry the classifier's reason and seat type; storage errors
// are logged and reported without their cause.
func writeError(c echo.Context, err error) error {
    status := statusFor(err)
    body := echo.Map{"error": model.Code(err), "message": err.Error()}

    var inel *model.IneligibleError
    if errors.As(err, &inel) {
        body["reason"] = inel.Reason
        if inel.SeatType != "" {
            body["seat_type"] = inel.SeatType
        }
    }
    if status == http.StatusInternalServerError {
        zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("request failed")
        body["message"] = "internal storage error"
    }
    return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": msg})
}
