package middleware

import (
    "bytes"
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/bus-seat-reservation/internal/config"
)

// captureWriter tees the response body into buf, up to limit bytes.
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

// cacheKey identifies a cached response by request path and query.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    key := cfg.Prefix + ":" + r.URL.Path
    if r.URL.RawQuery != "" {
        key += "?" + r.URL.RawQuery
    }
    return key
}

// NewRedisCache caches successful JSON GET responses in Redis for cfg.TTL.
// Only responses that fit in cfg.MaxBodyBytes are stored.  Hits carry
// X-Cache: HIT.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if log == nil {
        log = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKey(cfg, c)

            if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
                c.Response().Header().Set("X-Cache", "HIT")
                return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, body)
            } else if err != redis.Nil {
                log.Warn("response cache read failed", zap.String("key", key), zap.Error(err))
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            ct := c.Response().Header().Get(echo.HeaderContentType)
            if cw.status != http.StatusOK || cw.overflow || !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
                return nil
            }
            if err := rdb.Set(context.WithoutCancel(ctx), key, cw.buf.Bytes(), cfg.TTL).Err(); err != nil {
                log.Warn("response cache write failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}
