package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = echo.HeaderXRequestID

// RequestLogger tags every request with an id (reusing the client's
// X-Request-ID when present) and logs one line when it completes.  The
// request-scoped logger is attached to the request context so services
// can pick it up with zerolog.Ctx.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()
            rid := req.Header.Get(RequestIDHeader)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(RequestIDHeader, rid)

            l := base.With().Str("request_id", rid).Logger()
            c.SetRequest(req.WithContext(l.WithContext(req.Context())))

            err := next(c)
            if err != nil {
                c.Error(err)
            }

            status := c.Response().Status
            ev := l.Info()
            switch {
            case status >= 500:
                ev = l.Error().Err(err)
            case status >= 400:
                ev = l.Warn()
            }
            ev.Str("method", req.Method).
                Str("path", c.Path()).
                Str("uri", req.RequestURI).
                Int("status", status).
                Int64("bytes", c.Response().Size).
                Dur("latency", time.Since(start)).
                Str("ip", c.RealIP()).
                Msg("request")
            return nil
        }
    }
}
