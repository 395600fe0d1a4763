package model

import "errors"

// Booking failure kinds.  Every kind maps to a distinct caller-visible
// result; handlers translate them with errors.Is.
var (
    // ErrSeatUnavailable: a requested seat is booked or held by another
    // pending hold.  Clients should pick different seats.
    ErrSeatUnavailable = errors.New("seat unavailable")
    // ErrHoldNotPending: the hold is terminal or its TTL has lapsed.
    ErrHoldNotPending = errors.New("hold is not pending")
    // ErrSeatConflict: a seat gained a ledger entry between hold and commit.
    ErrSeatConflict = errors.New("seat conflict")
    // ErrAmountMismatch: the amount does not equal seat count × unit price.
    ErrAmountMismatch = errors.New("amount mismatch")
    ErrVehicleNotFound = errors.New("vehicle not found")
    ErrHoldNotFound    = errors.New("hold not found")
    ErrSessionNotFound = errors.New("payment session not found")
    ErrUnauthorized    = errors.New("unauthorized")
    ErrInvalidRequest  = errors.New("invalid request")
)
