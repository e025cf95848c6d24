package config // package config loads application configuration from environment variables

import (
    "os"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBDriver   string // "mysql" or "sqlite"
    DBUser     string // MySQL username
    DBPass     string // MySQL password (optional)
    DBHost     string // MySQL host address
    DBPort     string // MySQL port number
    DBName     string // MySQL database name
    SQLitePath string // database file when DBDriver is sqlite

    StoreDriver    string // where bookings and inventory live: "sql" or "redis"
    StoreDisableTx bool   // force the compensating executor on the SQL store
    RedisPrefix    string // key prefix of the Redis store

    JWTSecret    string // secret used to verify admin tokens
    AccessTTLMin int    // lifetime of tokens minted by seatadmin

    LogLevel      string // zerolog level name
    EventsEnabled bool   // publish seat events to RabbitMQ
    RabbitURL     string // broker URL
    AuditLogDir   string // directory of the audit consumer's log file

    UserCacheSize int           // entries kept by the user lookup cache
    UserCacheTTL  time.Duration // lifetime of a cached user
}

// LoadDotEnv reads .env from the working directory when present.  Variables
// already set in the environment win.
func LoadDotEnv() {
    _ = godotenv.Load()
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  MySQL settings are
// only required when DB_DRIVER is mysql.
func Load() Config {
    cfg := load()
    cfg.Port = must("APP_PORT")
    cfg.JWTSecret = must("JWT_SECRET")
    return cfg
}

// LoadAdmin is Load for the seatadmin CLI: neither APP_PORT nor JWT_SECRET
// is required up front.
func LoadAdmin() Config {
    return load()
}

func load() Config {
    cfg := Config{
        Env:  envStr("APP_ENV", "dev"),
        Port: envStr("APP_PORT", ""),

        DBDriver:   envStr("DB_DRIVER", "mysql"),
        SQLitePath: envStr("SQLITE_PATH", "seats.db"),

        StoreDriver:    envStr("STORE_DRIVER", "sql"),
        StoreDisableTx: envBool("STORE_DISABLE_TX", false),
        RedisPrefix:    envStr("STORE_REDIS_PREFIX", "seats"),

        JWTSecret:    envStr("JWT_SECRET", ""),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),

        LogLevel:      envStr("LOG_LEVEL", "info"),
        EventsEnabled: envBool("EVENTS_ENABLED", false),
        RabbitURL:     envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        AuditLogDir:   envStr("AUDIT_LOG_DIR", "logs"),

        UserCacheSize: envInt("USER_CACHE_SIZE", 4096),
        UserCacheTTL:  envDur("USER_CACHE_TTL", time.Minute),
    }
    if cfg.DBDriver == "mysql" {
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    }
    return cfg
}
