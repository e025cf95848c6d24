package config

// Redis serves three purposes: the optional Redis booking store, distributed
// rate limiting and the schedule response cache.  The client parameters are
// loaded from environment variables.

import (
    "context"
    "crypto/tls"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand, used when host/port are not both set
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func RedisOptions() *redis.Options {
    addr := os.Getenv("REDIS_ADDR")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    var tlsConf *tls.Config
    if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        envInt("REDIS_DB", 0),
        TLSConfig: tlsConf,
    }
}

// NewRedisClient connects with RedisOptions and pings the server with a
// short timeout.  On failure the client is closed and the error returned;
// callers that treat Redis as optional degrade by disabling the features
// that need it.
func NewRedisClient() (*redis.Client, error) {
    opts := RedisOptions()
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
    }
    return client, nil
}
