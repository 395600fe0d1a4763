package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
    "github.com/iliyamo/bus-seat-reservation/internal/service"
)

// BookedReader returns the booked seats of a vehicle, possibly cached.
type BookedReader interface {
    Booked(ctx context.Context, vehicleID uint64) ([]int, error)
}

// VehicleHandler serves the public vehicle endpoints.
type VehicleHandler struct {
    Catalog service.VehicleCatalog
    Holds   *service.HoldManager
    Booked  BookedReader
}

// NewVehicleHandler panics if a dependency is nil.
func NewVehicleHandler(catalog service.VehicleCatalog, holds *service.HoldManager, booked BookedReader) *VehicleHandler {
    if catalog == nil || holds == nil || booked == nil {
        panic("nil dependency passed to NewVehicleHandler")
    }
    return &VehicleHandler{Catalog: catalog, Holds: holds, Booked: booked}
}

type vehicleSummary struct {
    model.Vehicle
    BookedCount int `json:"booked_count"`
}

// List handles GET /v1/vehicles.  Each vehicle carries its booked seat
// count, read through the availability cache.
func (h *VehicleHandler) List(c echo.Context) error {
    ctx := c.Request().Context()
    vehicles, err := h.Catalog.ListVehicles(ctx)
    if err != nil {
        return fail(c, err)
    }
    out := make([]vehicleSummary, 0, len(vehicles))
    for _, v := range vehicles {
        booked, err := h.Booked.Booked(ctx, v.ID)
        if err != nil {
            return fail(c, err)
        }
        out = append(out, vehicleSummary{Vehicle: v, BookedCount: len(booked)})
    }
    return c.JSON(http.StatusOK, echo.Map{"vehicles": out})
}

// Get handles GET /v1/vehicles/:id.
func (h *VehicleHandler) Get(c echo.Context) error {
    id, ok := vehicleID(c)
    if !ok {
        return badRequest(c, "invalid vehicle id")
    }
    v, err := h.Catalog.GetVehicle(c.Request().Context(), id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Availability handles GET /v1/vehicles/:id/availability.  It is served
// from the authoritative in-memory ledger, never from a cache.
func (h *VehicleHandler) Availability(c echo.Context) error {
    id, ok := vehicleID(c)
    if !ok {
        return badRequest(c, "invalid vehicle id")
    }
    a, err := h.Holds.Availability(c.Request().Context(), id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, a)
}
