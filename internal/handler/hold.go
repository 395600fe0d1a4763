package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-seat-reservation/internal/middleware"
    "github.com/iliyamo/bus-seat-reservation/internal/model"
    "github.com/iliyamo/bus-seat-reservation/internal/service"
)

// HoldHandler serves hold and checkout endpoints for authenticated
// passengers.  A hold is visible only to the passenger who created it and
// to admins.
type HoldHandler struct {
    Holds    *service.HoldManager
    Payments *service.Coordinator
}

// NewHoldHandler panics if a dependency is nil.
func NewHoldHandler(holds *service.HoldManager, payments *service.Coordinator) *HoldHandler {
    if holds == nil || payments == nil {
        panic("nil dependency passed to NewHoldHandler")
    }
    return &HoldHandler{Holds: holds, Payments: payments}
}

type createHoldRequest struct {
    Seats      []model.SeatAssignment `json:"seats"`
    TTLSeconds int                    `json:"ttl_seconds"`
}

// Create handles POST /v1/vehicles/:id/holds.  The body lists the seats
// with their passengers and an optional TTL in seconds.  Responds 201 with
// the hold.
func (h *HoldHandler) Create(c echo.Context) error {
    id, ok := vehicleID(c)
    if !ok {
        return badRequest(c, "invalid vehicle id")
    }
    var body createHoldRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.TTLSeconds < 0 {
        return badRequest(c, "ttl_seconds must not be negative")
    }
    hold, err := h.Holds.CreateHold(c.Request().Context(), id, middleware.UserID(c), body.Seats, time.Duration(body.TTLSeconds)*time.Second)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, hold)
}

func actor(c echo.Context) service.Actor {
    return service.Actor{ID: middleware.UserID(c), Role: middleware.Role(c)}
}

// owned fails the request unless the caller may act on hold :id.
func (h *HoldHandler) owned(c echo.Context) error {
    return h.Holds.Authorize(c.Request().Context(), c.Param("id"), actor(c))
}

// Get handles GET /v1/holds/:id.
func (h *HoldHandler) Get(c echo.Context) error {
    if err := h.owned(c); err != nil {
        return fail(c, err)
    }
    hold, err := h.Holds.Get(c.Request().Context(), c.Param("id"))
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, hold)
}

// Confirm handles POST /v1/holds/:id/confirm.
func (h *HoldHandler) Confirm(c echo.Context) error {
    if err := h.owned(c); err != nil {
        return fail(c, err)
    }
    hold, err := h.Holds.Confirm(c.Request().Context(), c.Param("id"))
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, hold)
}

// Cancel handles POST /v1/holds/:id/cancel.
func (h *HoldHandler) Cancel(c echo.Context) error {
    if err := h.owned(c); err != nil {
        return fail(c, err)
    }
    hold, err := h.Holds.Cancel(c.Request().Context(), c.Param("id"))
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, hold)
}

type openSessionRequest struct {
    AmountCents int64  `json:"amount_cents"`
    ReturnURL   string `json:"return_url"`
}

// OpenPaymentSession handles POST /v1/holds/:id/payment-session.  The
// client states the amount it expects to pay; a mismatch is rejected with
// 422 before the gateway is contacted.
func (h *HoldHandler) OpenPaymentSession(c echo.Context) error {
    var body openSessionRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.AmountCents <= 0 {
        return badRequest(c, "amount_cents is required")
    }
    if err := h.owned(c); err != nil {
        return fail(c, err)
    }
    s, err := h.Payments.OpenSession(c.Request().Context(), c.Param("id"), body.AmountCents, body.ReturnURL)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "session_id":   s.ID,
        "hold_id":      s.HoldID,
        "amount_cents": s.AmountCents,
        "redirect_url": s.RedirectURL,
    })
}
