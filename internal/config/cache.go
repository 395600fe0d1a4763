package config

import "time"

// CacheConfig configures the Redis response cache placed in front of the
// vehicle detail endpoint.  Vehicle inventory changes rarely, so entries
// live for minutes rather than seconds.  MaxBodyBytes bounds what is stored.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 64<<10),
    }
    if c.TTL <= 0 {
        c.Enabled = false
    }
    return c
}
