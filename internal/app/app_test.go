package app

import (
    "context"
    "path/filepath"
    "testing"

    "github.com/alicebob/miniredis/v2"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/office-seat-booking/internal/config"
    "github.com/iliyamo/office-seat-booking/internal/model"
    "github.com/iliyamo/office-seat-booking/internal/repository"
)

func testConfig(t *testing.T) config.Config {
    return config.Config{
        Env:           "test",
        DBDriver:      "sqlite",
        SQLitePath:    filepath.Join(t.TempDir(), "seats.db"),
        StoreDriver:   "sql",
        RedisPrefix:   "seats",
        UserCacheSize: 8,
    }
}

func bookingConfig(t *testing.T) config.BookingConfig {
    bcfg, err := config.LoadBookingConfig()
    require.NoError(t, err)
    return bcfg
}

func TestNewSQLStore(t *testing.T) {
    a, err := New(context.Background(), testConfig(t), bookingConfig(t), zerolog.Nop(), Options{})
    require.NoError(t, err)
    defer a.Close()

    assert.IsType(t, &repository.SQLStore{}, a.Store)
    assert.Nil(t, a.Redis)
    assert.Nil(t, a.Publisher)

    av, err := a.Service.Availability(context.Background(), "2026-12-01")
    require.NoError(t, err)
    assert.Equal(t, model.DefaultDesignatedCapacity, av.DesignatedCapacity)
}

func TestNewRedisStore(t *testing.T) {
    mr := miniredis.RunT(t)
    t.Setenv("REDIS_ADDR", mr.Addr())
    cfg := testConfig(t)
    cfg.StoreDriver = "redis"

    a, err := New(context.Background(), cfg, bookingConfig(t), zerolog.Nop(), Options{})
    require.NoError(t, err)
    defer a.Close()
    assert.IsType(t, &repository.RedisStore{}, a.Store)
    require.NotNil(t, a.Redis)

    _, err = a.Service.Availability(context.Background(), "2026-12-01")
    require.NoError(t, err)
    assert.True(t, mr.Exists("seats:inv:2026-12-01"))
}

func TestNewRedisRequiredWhenStoreIsRedis(t *testing.T) {
    t.Setenv("REDIS_ADDR", "127.0.0.1:1")
    cfg := testConfig(t)
    cfg.StoreDriver = "redis"
    _, err := New(context.Background(), cfg, bookingConfig(t), zerolog.Nop(), Options{})
    assert.Error(t, err)
}

func TestNewOptionalRedisDegrades(t *testing.T) {
    t.Setenv("REDIS_ADDR", "127.0.0.1:1")
    a, err := New(context.Background(), testConfig(t), bookingConfig(t), zerolog.Nop(), Options{WantRedis: true})
    require.NoError(t, err)
    defer a.Close()
    assert.Nil(t, a.Redis)
}

func TestNewRejectsUnknownDrivers(t *testing.T) {
    cfg := testConfig(t)
    cfg.StoreDriver = "mongo"
    _, err := New(context.Background(), cfg, bookingConfig(t), zerolog.Nop(), Options{})
    assert.Error(t, err)

    cfg = testConfig(t)
    cfg.DBDriver = "postgres"
    _, err = New(context.Background(), cfg, bookingConfig(t), zerolog.Nop(), Options{})
    assert.Error(t, err)
}

func TestNewLoggerParsesLevel(t *testing.T) {
    l := NewLogger("prod", "warn")
    assert.Equal(t, zerolog.WarnLevel, l.GetLevel())
    l = NewLogger("prod", "bogus")
    assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}
