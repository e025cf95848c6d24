package middleware

import (
    "bytes"
    "encoding/json"
    "io"
    "strconv"

    "github.com/labstack/echo/v4"
)

// maxPeekBytes bounds how much of a request body currentUserID reads.
const maxPeekBytes = 4 << 10

// currentUserID names the caller for rate limiting.  Admin requests carry
// the JWT subject; booking requests name the employee in the user_id query
// parameter or JSON body.  Anything else is "anon".
func currentUserID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    if q := c.QueryParam("user_id"); q != "" {
        return q
    }
    if id := peekBodyUserID(c); id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}

// peekBodyUserID decodes user_id from a small JSON body and restores the
// body so handlers can bind it again.
func peekBodyUserID(c echo.Context) uint64 {
    req := c.Request()
    if req.Body == nil || req.ContentLength <= 0 || req.ContentLength > maxPeekBytes {
        return 0
    }
    buf, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBytes))
    _ = req.Body.Close()
    req.Body = io.NopCloser(bytes.NewReader(buf))
    if err != nil {
        return 0
    }
    var body struct {
        UserID uint64 `json:"user_id"`
    }
    if json.Unmarshal(buf, &body) != nil {
        return 0
    }
    return body.UserID
}
