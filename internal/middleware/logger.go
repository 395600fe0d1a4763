package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger logs one line per request with method, route, status and
// latency.  Server errors are logged at error level.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req := c.Request()
            status := c.Response().Status
            fields := []zap.Field{
                zap.String("method", req.Method),
                zap.String("route", c.Path()),
                zap.String("uri", req.RequestURI),
                zap.Int("status", status),
                zap.Duration("latency", time.Since(start)),
                zap.String("remote_ip", c.RealIP()),
            }
            if uid := UserID(c); uid != "" {
                fields = append(fields, zap.String("user_id", uid))
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }
            if status >= 500 {
                log.Error("request", fields...)
            } else {
                log.Info("request", fields...)
            }
            return nil
        }
    }
}
