package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-seat-reservation/internal/handler"
    "github.com/iliyamo/bus-seat-reservation/internal/middleware"
    "github.com/iliyamo/bus-seat-reservation/internal/service"
)

// Passenger-facing roles.  Admins may do anything a customer can.
const (
    RoleCustomer = "CUSTOMER"
    RoleAdmin    = service.RoleAdmin
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
    Vehicles *handler.VehicleHandler
    Holds    *handler.HoldHandler
    Payments *handler.PaymentHandler
    Admin    *handler.AdminHandler
}

// Middleware carries the Redis-backed middleware.  Either may be nil, in
// which case the routes are registered without it.
type Middleware struct {
    RateLimit     echo.MiddlewareFunc // applied to hold creation and session opening
    ResponseCache echo.MiddlewareFunc // applied to vehicle details
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
    if m == nil {
        return nil
    }
    return []echo.MiddlewareFunc{m}
}

// RegisterRoutes registers non-authenticated routes.  At the moment it only
// exposes a health check endpoint.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints.  Guests can
// inspect vehicles and their seat availability before signing in.
func RegisterPublic(e *echo.Echo, h Handlers, mw Middleware) {
    e.GET("/v1/vehicles", h.Vehicles.List)
    e.GET("/v1/vehicles/:id", h.Vehicles.Get, optional(mw.ResponseCache)...)
    e.GET("/v1/vehicles/:id/availability", h.Vehicles.Availability)
}

// RegisterBooking registers hold and checkout endpoints.  They require a
// valid JWT and the CUSTOMER or ADMIN role.
func RegisterBooking(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(RoleCustomer, RoleAdmin),
    )
    limited := optional(mw.RateLimit)
    g.POST("/vehicles/:id/holds", h.Holds.Create, limited...)
    g.GET("/holds/:id", h.Holds.Get)
    g.POST("/holds/:id/confirm", h.Holds.Confirm)
    g.POST("/holds/:id/cancel", h.Holds.Cancel)
    g.POST("/holds/:id/payment-session", h.Holds.OpenPaymentSession, limited...)
}

// RegisterPayments registers the gateway callbacks.  They carry no JWT;
// each request is authenticated by its HMAC signature instead.
func RegisterPayments(e *echo.Echo, h Handlers) {
    e.POST("/v1/payments/webhook", h.Payments.Webhook)
    e.GET("/v1/payments/return", h.Payments.Return)
}

// RegisterAdmin registers operator endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string) {
    g := e.Group(
        "/v1/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(RoleAdmin),
    )
    g.GET("/vehicles/:id/tickets", h.Admin.Tickets)
    g.POST("/vehicles/:id/reset", h.Admin.Reset)
}

// Register wires every route group.
func Register(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
    RegisterRoutes(e)
    RegisterPublic(e, h, mw)
    RegisterBooking(e, h, mw, jwtSecret)
    RegisterPayments(e, h)
    RegisterAdmin(e, h, jwtSecret)
}
