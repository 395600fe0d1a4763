package config

// Redis backs rate limiting, the vehicle response cache and the
// availability cache.  When the server cannot be reached at startup the
// constructor returns nil and every Redis consumer degrades to
// pass-through.

import (
    "context"
    "crypto/tls"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings.
type RedisConfig struct {
    Addr     string // REDIS_ADDR or REDIS_HOST:REDIS_PORT
    Password string // REDIS_PASSWORD
    DB       int    // REDIS_DB
    TLS      bool   // REDIS_TLS
}

// LoadRedisConfig reads REDIS_* variables.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
    }
}

// NewRedisClient connects and pings with a short timeout.  It returns nil
// when the server is unreachable.
func NewRedisClient(c RedisConfig) *redis.Client {
    var tlsConf *tls.Config
    if c.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      c.Addr,
        Password:  c.Password,
        DB:        c.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
