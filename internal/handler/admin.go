package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-seat-reservation/internal/service"
)

// AdminHandler serves operator endpoints.  Routes are guarded by the
// ADMIN role; ResetVehicle checks the role again.
type AdminHandler struct {
    Holds *service.HoldManager
}

// NewAdminHandler panics if holds is nil.
func NewAdminHandler(holds *service.HoldManager) *AdminHandler {
    if holds == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Holds: holds}
}

// Tickets handles GET /v1/admin/vehicles/:id/tickets and lists every
// booked seat with its passenger.
func (h *AdminHandler) Tickets(c echo.Context) error {
    id, ok := vehicleID(c)
    if !ok {
        return badRequest(c, "invalid vehicle id")
    }
    tickets, err := h.Holds.Tickets(c.Request().Context(), id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"vehicle_id": id, "tickets": tickets})
}

// Reset handles POST /v1/admin/vehicles/:id/reset.
func (h *AdminHandler) Reset(c echo.Context) error {
    id, ok := vehicleID(c)
    if !ok {
        return badRequest(c, "invalid vehicle id")
    }
    cleared, err := h.Holds.ResetVehicle(c.Request().Context(), id, actor(c))
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"vehicle_id": id, "cleared": cleared})
}
