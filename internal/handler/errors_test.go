package handler

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/bus-seat-reservation/internal/gateway"
    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

func TestFail(t *testing.T) {
    tests := []struct {
        err    error
        status int
        code   string
    }{
        {fmt.Errorf("seat 41: %w", model.ErrInvalidRequest), http.StatusBadRequest, "INVALID_REQUEST"},
        {model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
        {gateway.ErrBadSignature, http.StatusUnauthorized, "BAD_SIGNATURE"},
        {fmt.Errorf("vehicle 9: %w", model.ErrVehicleNotFound), http.StatusNotFound, "VEHICLE_NOT_FOUND"},
        {model.ErrHoldNotFound, http.StatusNotFound, "HOLD_NOT_FOUND"},
        {model.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
        {model.ErrSeatUnavailable, http.StatusConflict, "SEAT_UNAVAILABLE"},
        {model.ErrSeatConflict, http.StatusConflict, "SEAT_CONFLICT"},
        {model.ErrHoldNotPending, http.StatusConflict, "HOLD_NOT_PENDING"},
        {model.ErrAmountMismatch, http.StatusUnprocessableEntity, "AMOUNT_MISMATCH"},
        {errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
    }
    e := echo.New()
    for _, tt := range tests {
        t.Run(tt.code, func(t *testing.T) {
            rec := httptest.NewRecorder()
            c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
            require.NoError(t, fail(c, tt.err))
            assert.Equal(t, tt.status, rec.Code)

            var body map[string]string
            require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
            assert.Equal(t, tt.code, body["code"])
            if tt.status == http.StatusInternalServerError {
                assert.Equal(t, "internal error", body["error"], "internal errors are not leaked")
            }
        })
    }
}
