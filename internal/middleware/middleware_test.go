package middleware

import (
    "context"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/office-seat-booking/internal/config"
    "github.com/iliyamo/office-seat-booking/internal/utils"
)

const testSecret = "test-secret"

func newRedis(t *testing.T) *redis.Client {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return rdb
}

func serve(e *echo.Echo, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, target, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    for k, v := range hdr {
        req.Header.Set(k, v)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func adminEcho() *echo.Echo {
    e := echo.New()
    g := e.Group("/admin", JWTAuth(testSecret), RequireRole("ADMIN"))
    g.GET("/whoami", func(c echo.Context) error {
        return c.String(http.StatusOK, c.Get("user_id").(string))
    })
    return e
}

func TestJWTAuthAndRole(t *testing.T) {
    e := adminEcho()

    rec := serve(e, http.MethodGet, "/admin/whoami", "", nil)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = serve(e, http.MethodGet, "/admin/whoami", "", map[string]string{"Authorization": "Bearer nope"})
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    tok, err := utils.NewAccessToken(testSecret, 7, "EMPLOYEE", time.Minute)
    require.NoError(t, err)
    rec = serve(e, http.MethodGet, "/admin/whoami", "", map[string]string{"Authorization": "Bearer " + tok.Token})
    assert.Equal(t, http.StatusForbidden, rec.Code)

    tok, err = utils.NewAccessToken(testSecret, 7, "ADMIN", time.Minute)
    require.NoError(t, err)
    rec = serve(e, http.MethodGet, "/admin/whoami", "", map[string]string{"Authorization": "Bearer " + tok.Token})
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "7", rec.Body.String())
}

func TestJWTAuthRejectsOtherAlgorithms(t *testing.T) {
    tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "role": "ADMIN"})
    raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)
    rec := serve(adminEcho(), http.MethodGet, "/admin/whoami", "", map[string]string{"Authorization": "Bearer " + raw})
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenBucket(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
        TTL: 2 * time.Hour, KeyStrategy: "user", Prefix: "rl",
    }
    e := echo.New()
    e.POST("/v1/bookings", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, rdb))

    for i := 0; i < 2; i++ {
        rec := serve(e, http.MethodPost, "/v1/bookings", `{"user_id":1,"date":"2026-02-24"}`, nil)
        assert.Equal(t, http.StatusCreated, rec.Code)
    }
    rec := serve(e, http.MethodPost, "/v1/bookings", `{"user_id":1,"date":"2026-02-24"}`, nil)
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))

    // A different user has its own bucket.
    rec = serve(e, http.MethodPost, "/v1/bookings", `{"user_id":2,"date":"2026-02-24"}`, nil)
    assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestTokenBucketFailsOpen(t *testing.T) {
    rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
    defer rdb.Close()
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb))
    assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", "", nil).Code)
}

func TestCurrentUserIDRestoresBody(t *testing.T) {
    e := echo.New()
    var bound struct {
        UserID uint64 `json:"user_id"`
    }
    e.POST("/", func(c echo.Context) error {
        id := currentUserID(c)
        require.NoError(t, c.Bind(&bound))
        return c.String(http.StatusOK, id)
    })
    rec := serve(e, http.MethodPost, "/", `{"user_id":42}`, nil)
    assert.Equal(t, "42", rec.Body.String())
    assert.Equal(t, uint64(42), bound.UserID)

    rec = serve(e, http.MethodPost, "/?user_id=9", `{"user_id":42}`, nil)
    assert.Equal(t, "9", rec.Body.String(), "query parameter wins")
}

func TestRedisCache(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.CacheConfig{
        Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
        KeyStrategy: "route_query", Prefix: "seatcache", MaxBodyBytes: 64,
    }
    calls := 0
    e := echo.New()
    e.GET("/v1/schedule", func(c echo.Context) error {
        calls++
        if c.QueryParam("big") != "" {
            return c.String(http.StatusOK, strings.Repeat("x", 100))
        }
        return c.JSON(http.StatusOK, echo.Map{"from": c.QueryParam("from")})
    }, NewRedisCache(cfg, rdb, nil))

    rec := serve(e, http.MethodGet, "/v1/schedule?from=2026-02-23", "", nil)
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    rec = serve(e, http.MethodGet, "/v1/schedule?from=2026-02-23", "", nil)
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"from":"2026-02-23"}`, rec.Body.String())
    assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
    assert.Equal(t, 1, calls)

    serve(e, http.MethodGet, "/v1/schedule?from=2026-03-02", "", nil)
    assert.Equal(t, 2, calls, "different query is a different key")

    serve(e, http.MethodGet, "/v1/schedule?big=1", "", nil)
    rec = serve(e, http.MethodGet, "/v1/schedule?big=1", "", nil)
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "oversized bodies are not cached")
    assert.Len(t, rec.Body.String(), 100)
}

func TestRedisCacheSkipper(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.CacheConfig{
        Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
        KeyStrategy: "route_query", Prefix: "seatcache", MaxBodyBytes: 1024,
    }
    calls := 0
    e := echo.New()
    e.GET("/v1/schedule", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"call": calls})
    }, NewRedisCache(cfg, rdb, func(c echo.Context) bool { return c.QueryParam("from") == "" }))

    for i := 1; i <= 2; i++ {
        rec := serve(e, http.MethodGet, "/v1/schedule", "", nil)
        assert.Empty(t, rec.Header().Get("X-Cache"))
        assert.JSONEq(t, fmt.Sprintf(`{"call":%d}`, i), rec.Body.String())
    }
    keys, err := rdb.Keys(context.Background(), "seatcache:*").Result()
    require.NoError(t, err)
    assert.Empty(t, keys, "skipped responses are never stored")

    serve(e, http.MethodGet, "/v1/schedule?from=2026-02-23", "", nil)
    rec := serve(e, http.MethodGet, "/v1/schedule?from=2026-02-23", "", nil)
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    assert.Equal(t, 3, calls)
}

func TestRequestLogger(t *testing.T) {
    var buf strings.Builder
    e := echo.New()
    e.Use(RequestLogger(zerolog.New(&buf)))
    e.GET("/ok", func(c echo.Context) error {
        zerolog.Ctx(c.Request().Context()).Info().Msg("inside")
        return c.NoContent(http.StatusNoContent)
    })

    rec := serve(e, http.MethodGet, "/ok", "", map[string]string{RequestIDHeader: "abc"})
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
    out := buf.String()
    assert.Contains(t, out, `"request_id":"abc"`)
    assert.Contains(t, out, `"message":"inside"`)
    assert.Contains(t, out, `"status":204`)

    rec = serve(e, http.MethodGet, "/ok", "", nil)
    assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}
