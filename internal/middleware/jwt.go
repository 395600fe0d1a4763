package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-seat-reservation/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the token's subject and role in the request context under
// "user_id" and "role".  The secret must match the one used when issuing
// tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "UNAUTHORIZED"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "UNAUTHORIZED"})
            }
            c.Set(ctxUserID, claims.Subject)
            c.Set(ctxRole, claims.Role)
            return next(c)
        }
    }
}
