// Package app wires configuration, storage and the booking engine together
// for the server and the admin CLI.
package app

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"

    "github.com/iliyamo/office-seat-booking/internal/clock"
    "github.com/iliyamo/office-seat-booking/internal/config"
    "github.com/iliyamo/office-seat-booking/internal/database"
    "github.com/iliyamo/office-seat-booking/internal/queue"
    "github.com/iliyamo/office-seat-booking/internal/repository"
    "github.com/iliyamo/office-seat-booking/internal/service"
)

// Options tune New.  WantRedis asks for a Redis client even when the
// booking store is SQL; a connection failure then only disables the
// features that need it.
type Options struct {
    WantRedis bool
    Events    bool
}

// App holds the long-lived dependencies of a process.  Redis and Publisher
// are nil when not configured.
type App struct {
    Config    config.Config
    Booking   config.BookingConfig
    DB        *sql.DB
    Redis     *redis.Client
    Users     *repository.UserRepo
    Store     repository.Store
    Service   *service.BookingService
    Publisher *queue.Publisher
    Log       zerolog.Logger
}

// New opens the database, applies the schema, selects the booking store
// and builds the service.
func New(ctx context.Context, cfg config.Config, bcfg config.BookingConfig, logger zerolog.Logger, o Options) (*App, error) {
    a := &App{Config: cfg, Booking: bcfg, Log: logger}
    ok := false
    defer func() {
        if !ok {
            a.Close()
        }
    }()

    dialect, err := repository.ParseDialect(cfg.DBDriver)
    if err != nil {
        return nil, err
    }
    switch dialect {
    case repository.DialectMySQL:
        a.DB, err = database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    default:
        a.DB, err = database.OpenSQLite(cfg.SQLitePath)
    }
    if err != nil {
        return nil, fmt.Errorf("open %s: %w", dialect, err)
    }
    if err := database.Migrate(ctx, a.DB, string(dialect)); err != nil {
        return nil, err
    }

    if cfg.StoreDriver == "redis" || o.WantRedis {
        rdb, err := config.NewRedisClient()
        switch {
        case err == nil:
            a.Redis = rdb
        case cfg.StoreDriver == "redis":
            return nil, err
        default:
            logger.Warn().Err(err).Msg("redis unavailable; rate limiting and response cache disabled")
        }
    }

    opts := repository.Options{
        Location:  bcfg.Location,
        Defaults:  bcfg.Capacities,
        Clock:     clock.Real(),
        DisableTx: cfg.StoreDisableTx,
    }
    switch cfg.StoreDriver {
    case "sql", "":
        a.Store = repository.NewSQLStore(a.DB, dialect, opts)
    case "redis":
        a.Store = repository.NewRedisStore(a.Redis, cfg.RedisPrefix, opts)
    default:
        return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
    }

    classifier, err := bcfg.Classifier()
    if err != nil {
        return nil, err
    }
    a.Users = repository.NewUserRepo(a.DB)
    deps := service.Deps{
        Store:      a.Store,
        Users:      repository.NewCachedUserDirectory(a.Users, cfg.UserCacheSize, cfg.UserCacheTTL),
        Classifier: classifier,
        Clock:      clock.Real(),
        Logger:     logger,
    }
    if o.Events && cfg.EventsEnabled {
        a.Publisher = queue.NewPublisher(cfg.RabbitURL, logger)
        deps.Events = a.Publisher
    }
    a.Service = service.NewBookingService(deps)

    logger.Info().
        Str("db", string(dialect)).
        Str("store", cfg.StoreDriver).
        Str("timezone", bcfg.Location.String()).
        Int("designated_capacity", bcfg.Capacities.DesignatedCapacity).
        Int("buffer_capacity", bcfg.Capacities.BufferCapacity).
        Bool("events", a.Publisher != nil).
        Msg("booking engine ready")
    ok = true
    return a, nil
}

// Close releases every resource New opened.
func (a *App) Close() error {
    var errs []error
    if a.Publisher != nil {
        errs = append(errs, a.Publisher.Close())
    }
    if a.Redis != nil {
        errs = append(errs, a.Redis.Close())
    }
    if a.DB != nil {
        errs = append(errs, a.DB.Close())
    }
    return errors.Join(errs...)
}
