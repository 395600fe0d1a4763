package middleware

// identity.go holds the context keys written by JWTAuth and the accessors
// handlers and other middleware use to read them back.

import "github.com/labstack/echo/v4"

const (
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// UserID returns the authenticated subject, or "" for anonymous requests.
func UserID(c echo.Context) string {
    s, _ := c.Get(ctxUserID).(string)
    return s
}

// Role returns the authenticated role, or "" for anonymous requests.
func Role(c echo.Context) string {
    s, _ := c.Get(ctxRole).(string)
    return s
}
