package middleware

import (
    "context"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"

    "github.com/iliyamo/office-seat-booking/internal/config"
)

// tokenBucketScript refills and takes one token atomically.  The bucket is a
// hash {tokens, last_refill_ms}; it returns {allowed, remaining, retry_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
  local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals * refill_tokens)
    last_refill = last_refill + intervals * interval_ms
  end
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_ms }
`)

type bucketResult struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

// NewTokenBucket limits requests per key with a Redis token bucket shared by
// every server process.  Redis failures let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            ctx := c.Request().Context()
            res, err := takeToken(ctx, rdb, cfg, key, time.Now())
            if err != nil {
                zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if !res.allowed {
                secs := int(math.Ceil(res.retry.Seconds()))
                h.Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    zerolog.Ctx(ctx).Debug().Str("key", key).Dur("retry", res.retry).Msg("rate limited")
                }
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

func takeToken(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (bucketResult, error) {
    vals, err := tokenBucketScript.Run(ctx, rdb, []string{key},
        now.UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return bucketResult{}, err
    }
    if len(vals) != 3 {
        return bucketResult{}, redis.Nil
    }
    return bucketResult{
        allowed:   vals[0] == 1,
        remaining: vals[1],
        retry:     time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := currentUserID(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
