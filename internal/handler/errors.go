package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-seat-reservation/internal/gateway"
    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// errorKinds maps domain errors to a status and a machine-readable code.
// Order matters only for errors that wrap more than one kind.
var errorKinds = []struct {
    err    error
    status int
    code   string
}{
    {model.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
    {model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
    {gateway.ErrBadSignature, http.StatusUnauthorized, "BAD_SIGNATURE"},
    {model.ErrVehicleNotFound, http.StatusNotFound, "VEHICLE_NOT_FOUND"},
    {model.ErrHoldNotFound, http.StatusNotFound, "HOLD_NOT_FOUND"},
    {model.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
    {model.ErrSeatUnavailable, http.StatusConflict, "SEAT_UNAVAILABLE"},
    {model.ErrSeatConflict, http.StatusConflict, "SEAT_CONFLICT"},
    {model.ErrHoldNotPending, http.StatusConflict, "HOLD_NOT_PENDING"},
    {model.ErrAmountMismatch, http.StatusUnprocessableEntity, "AMOUNT_MISMATCH"},
}

// fail writes the JSON error body for err.  Unknown errors become 500
// without leaking their text.
func fail(c echo.Context, err error) error {
    for _, k := range errorKinds {
        if errors.Is(err, k.err) {
            return c.JSON(k.status, echo.Map{"error": err.Error(), "code": k.code})
        }
    }
    c.Logger().Error(err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "INTERNAL"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "INVALID_REQUEST"})
}

// vehicleID parses the :id path parameter.
func vehicleID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}
