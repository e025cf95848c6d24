package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"

    "github.com/iliyamo/office-seat-booking/internal/config"
)

// captureWriter tees the response into buf while forwarding it to the
// client.  Once more than limit bytes are written it stops buffering and
// marks the response as too large to cache.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.overflow {
        if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
            cw.overflow = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default: // route_query
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdr, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdr)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
    copy(out[8:], hdr)
    copy(out[8+len(hdr):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// NewRedisCache caches successful responses, headers included, in Redis.
// It is mounted on the schedule route only: the rotation for a given date
// never changes, so cached entries cannot go stale.  Requests for which
// skip returns true bypass the cache; skip may be nil.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, skip echomw.Skipper) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = time.Hour
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] || (skip != nil && skip(c)) {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, RequestIDHeader) {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, err := c.Response().Write(body)
                    return err
                }
            } else if err != redis.Nil {
                zerolog.Ctx(ctx).Warn().Err(err).Msg("response cache read failed")
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.overflow {
                return nil
            }

            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
            defer cancel()
            if err := rdb.SetEx(wctx, key, payload, ttl).Err(); err != nil {
                zerolog.Ctx(ctx).Warn().Err(err).Msg("response cache write failed")
            }
            return nil
        }
    }
}
