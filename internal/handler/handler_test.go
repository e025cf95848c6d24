package handler

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/office-seat-booking/internal/clock"
    "github.com/iliyamo/office-seat-booking/internal/database"
    "github.com/iliyamo/office-seat-booking/internal/model"
    "github.com/iliyamo/office-seat-booking/internal/repository"
    "github.com/iliyamo/office-seat-booking/internal/schedule"
    "github.com/iliyamo/office-seat-booking/internal/service"
)

// Monday of rotation week 1, after Tuesday's buffer window opened.
var testNow = time.Date(2026, 2, 23, 16, 0, 0, 0, time.UTC)

type env struct {
    e     *echo.Echo
    alice model.User // batch A
    bob   model.User // batch B
    carol model.User // batch B
}

func newEnv(t *testing.T) *env {
    t.Helper()
    ctx := context.Background()
    db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "seats.db"))
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    require.NoError(t, database.Migrate(ctx, db, "sqlite"))

    fake := clock.NewFake(testNow)
    store := repository.NewSQLStore(db, repository.DialectSQLite, repository.Options{
        Defaults: repository.Defaults{DesignatedCapacity: 1, BufferCapacity: 1},
        Clock:    fake,
    })
    users := repository.NewUserRepo(db)
    alice, err := users.Upsert(ctx, "alice@example.com", "Alice", "E1", model.BatchA)
    require.NoError(t, err)
    bob, err := users.Upsert(ctx, "bob@example.com", "Bob", "E2", model.BatchB)
    require.NoError(t, err)
    carol, err := users.Upsert(ctx, "carol@example.com", "Carol", "E3", model.BatchB)
    require.NoError(t, err)

    resolver, err := schedule.NewResolver(schedule.DefaultReferenceMonday, time.UTC)
    require.NoError(t, err)
    svc := service.NewBookingService(service.Deps{
        Store:      store,
        Users:      repository.NewCachedUserDirectory(users, 16, time.Minute),
        Classifier: schedule.NewClassifier(resolver, schedule.DefaultPolicy()),
        Clock:      fake,
        Logger:     zerolog.Nop(),
    })

    e := echo.New()
    e.GET("/healthz", Health(db))
    bh := NewBookingHandler(svc)
    ah := NewAdminHandler(svc)
    v1 := e.Group("/v1")
    v1.POST("/bookings", bh.Book)
    v1.DELETE("/bookings", bh.Cancel)
    v1.GET("/bookings", bh.List)
    v1.GET("/availability", bh.Availability)
    v1.GET("/eligibility", bh.Eligibility)
    v1.GET("/schedule", bh.Schedule)
    v1.PATCH("/admin/inventory/:date/buffer", ah.AdjustBuffer)
    return &env{e: e, alice: alice, bob: bob, carol: carol}
}

func (v *env) do(t *testing.T, method, target, body string) (int, map[string]any) {
    t.Helper()
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, target, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    rec := httptest.NewRecorder()
    v.e.ServeHTTP(rec, req)
    out := map[string]any{}
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
    return rec.Code, out
}

func bookingBody(id uint64, date string) string {
    b, _ := json.Marshal(map[string]any{"user_id": id, "date": date})
    return string(b)
}

func TestHealth(t *testing.T) {
    v := newEnv(t)
    code, body := v.do(t, http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusOK, code)
    assert.Equal(t, "ok", body["status"])
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func TestHealthUnavailable(t *testing.T) {
    e := echo.New()
    e.GET("/healthz", Health(failingPinger{}))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBookCancelFlow(t *testing.T) {
    v := newEnv(t)

    code, body := v.do(t, http.MethodPost, "/v1/bookings", bookingBody(v.alice.ID, "2026-02-24"))
    require.Equal(t, http.StatusCreated, code, body)
    bk := body["booking"].(map[string]any)
    assert.Equal(t, "designated", bk["seat_type"])
    assert.Equal(t, "booked", bk["status"])
    assert.Equal(t, "2026-02-24", bk["date"])

    code, body = v.do(t, http.MethodPost, "/v1/bookings", bookingBody(v.alice.ID, "2026-02-24"))
    assert.Equal(t, http.StatusConflict, code)
    assert.Equal(t, "duplicate_booking", body["error"])

    code, body = v.do(t, http.MethodGet, "/v1/availability?date=2026-02-24", "")
    require.Equal(t, http.StatusOK, code)
    assert.EqualValues(t, 0, body["designated_remaining"])
    assert.EqualValues(t, 1, body["buffer_remaining"])

    code, body = v.do(t, http.MethodDelete, "/v1/bookings", bookingBody(v.alice.ID, "2026-02-24"))
    require.Equal(t, http.StatusOK, code, body)
    assert.Equal(t, "cancelled", body["booking"].(map[string]any)["status"])

    // The designated seat moved to the buffer pool.
    _, body = v.do(t, http.MethodGet, "/v1/availability?date=2026-02-24", "")
    assert.EqualValues(t, 0, body["designated_capacity"])
    assert.EqualValues(t, 2, body["buffer_capacity"])

    code, body = v.do(t, http.MethodDelete, "/v1/bookings", bookingBody(v.alice.ID, "2026-02-24"))
    assert.Equal(t, http.StatusNotFound, code)
    assert.Equal(t, "not_found", body["error"])
}

func TestBookErrors(t *testing.T) {
    v := newEnv(t)
    tests := []struct {
        name   string
        body   string
        status int
        code   string
    }{
        {"bad json", `{"user_id":`, http.StatusBadRequest, "validation_error"},
        {"bad date", bookingBody(v.alice.ID, "24/02/2026"), http.StatusBadRequest, "validation_error"},
        {"past date", bookingBody(v.alice.ID, "2026-02-20"), http.StatusBadRequest, "validation_error"},
        {"unknown user", bookingBody(999, "2026-02-24"), http.StatusNotFound, "not_found"},
        {"weekend", bookingBody(v.alice.ID, "2026-02-28"), http.StatusForbidden, "ineligible"},
        {"missing user", `{"date":"2026-02-24"}`, http.StatusBadRequest, "validation_error"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            code, body := v.do(t, http.MethodPost, "/v1/bookings", tt.body)
            assert.Equal(t, tt.status, code, body)
            assert.Equal(t, tt.code, body["error"])
        })
    }
}

func TestBookIneligibleCarriesReason(t *testing.T) {
    v := newEnv(t)
    code, body := v.do(t, http.MethodPost, "/v1/bookings", bookingBody(v.alice.ID, "2026-02-26"))
    assert.Equal(t, http.StatusForbidden, code)
    assert.Equal(t, "ineligible", body["error"])
    assert.Equal(t, schedule.ReasonOutsideBufferWindow, body["reason"])
    assert.Equal(t, "buffer", body["seat_type"])
}

func TestCapacityExhausted(t *testing.T) {
    v := newEnv(t)
    code, _ := v.do(t, http.MethodPost, "/v1/bookings", bookingBody(v.bob.ID, "2026-02-24"))
    require.Equal(t, http.StatusCreated, code)

    code, body := v.do(t, http.MethodPost, "/v1/bookings", bookingBody(v.carol.ID, "2026-02-24"))
    assert.Equal(t, http.StatusConflict, code)
    assert.Equal(t, "capacity_exhausted", body["error"])
}

func TestListBookings(t *testing.T) {
    v := newEnv(t)
    v.do(t, http.MethodPost, "/v1/bookings", bookingBody(v.alice.ID, "2026-02-24"))
    v.do(t, http.MethodPost, "/v1/bookings", bookingBody(v.alice.ID, "2026-02-25"))
    v.do(t, http.MethodDelete, "/v1/bookings", bookingBody(v.alice.ID, "2026-02-25"))

    code, body := v.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings?user_id=%d", v.alice.ID), "")
    require.Equal(t, http.StatusOK, code)
    assert.Len(t, body["bookings"], 1)

    _, body = v.do(t, http.MethodGet, fmt.Sprintf("/v1/bookings?user_id=%d&include_cancelled=true", v.alice.ID), "")
    list := body["bookings"].([]any)
    require.Len(t, list, 2)
    assert.Equal(t, "2026-02-24", list[0].(map[string]any)["date"])

    code, body = v.do(t, http.MethodGet, "/v1/bookings?user_id=abc", "")
    assert.Equal(t, http.StatusBadRequest, code)
    assert.Equal(t, "validation_error", body["error"])

    code, _ = v.do(t, http.MethodGet, "/v1/bookings", "")
    assert.Equal(t, http.StatusBadRequest, code)
}

func TestEligibility(t *testing.T) {
    v := newEnv(t)
    code, body := v.do(t, http.MethodGet, fmt.Sprintf("/v1/eligibility?user_id=%d&date=2026-02-24", v.bob.ID), "")
    require.Equal(t, http.StatusOK, code)
    assert.Equal(t, true, body["eligible"])
    assert.Equal(t, "buffer", body["seat_type"])
    assert.Equal(t, "B1", body["day_batch"])
    assert.Equal(t, "B2", body["user_batch"])

    _, body = v.do(t, http.MethodGet, fmt.Sprintf("/v1/eligibility?user_id=%d&date=2026-02-28", v.bob.ID), "")
    assert.Equal(t, false, body["eligible"])
    assert.Equal(t, schedule.ReasonClosedDay, body["reason"])
}

func TestSchedule(t *testing.T) {
    v := newEnv(t)
    code, body := v.do(t, http.MethodGet, "/v1/schedule", "")
    require.Equal(t, http.StatusOK, code)
    assert.Equal(t, "2026-02-23", body["from"])
    assert.Equal(t, "2026-03-08", body["to"])
    days := body["days"].([]any)
    require.Len(t, days, 14)
    first := days[0].(map[string]any)
    assert.Equal(t, "Monday", first["weekday"])
    assert.Equal(t, "B1", first["designated_batch"])

    code, body = v.do(t, http.MethodGet, "/v1/schedule?from=2026-03-08&to=2026-03-01", "")
    assert.Equal(t, http.StatusBadRequest, code)
    assert.Equal(t, "validation_error", body["error"])
}

func TestAdjustBuffer(t *testing.T) {
    v := newEnv(t)
    code, body := v.do(t, http.MethodPatch, "/v1/admin/inventory/2026-02-24/buffer", `{"delta":3}`)
    require.Equal(t, http.StatusOK, code, body)
    inv := body["inventory"].(map[string]any)
    assert.EqualValues(t, 4, inv["buffer_base_capacity"])

    code, body = v.do(t, http.MethodPatch, "/v1/admin/inventory/2026-02-24/buffer", `{"delta":-10}`)
    assert.Equal(t, http.StatusBadRequest, code)
    assert.Equal(t, "validation_error", body["error"])

    code, _ = v.do(t, http.MethodPatch, "/v1/admin/inventory/2026-02-24/buffer", `{}`)
    assert.Equal(t, http.StatusBadRequest, code)
}

func TestStatusFor(t *testing.T) {
    assert.Equal(t, http.StatusInternalServerError, statusFor(&model.StorageError{Op: "x", Err: errors.New("boom")}))
    assert.Equal(t, http.StatusConflict, statusFor(model.ErrCapacityExhausted))
    assert.Equal(t, http.StatusForbidden, statusFor(&model.IneligibleError{Reason: "closed day"}))
}
