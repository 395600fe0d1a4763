package model

import "time"

// HoldStatus is the state of a Hold.  PENDING is the only non-terminal
// state.
type HoldStatus string

const (
    HoldPending   HoldStatus = "PENDING"
    HoldConfirmed HoldStatus = "CONFIRMED"
    HoldCancelled HoldStatus = "CANCELLED"
    HoldExpired   HoldStatus = "EXPIRED"
)

// Terminal reports whether no further transition is possible.
func (s HoldStatus) Terminal() bool {
    return s != HoldPending
}

// SeatAssignment pairs a seat number with the passenger travelling in it.
type SeatAssignment struct {
    SeatNumber      int    `json:"seat_number"`
    PassengerName   string `json:"passenger_name"`
    PassengerAge    int    `json:"passenger_age"`
    PassengerGender string `json:"passenger_gender"`
}

// Hold represents a temporary reservation of one or more seats on a
// vehicle while the passenger pays.  Holds are never deleted; once they
// leave PENDING they are kept for audit and for answering duplicate
// payment callbacks.
//
// Fields:
//  ID               – opaque identifier returned to the client.
//  VehicleID        – vehicle on which the seats are held.
//  Seats            – ordered seat assignments covered by the hold.
//  Status           – PENDING, CONFIRMED, CANCELLED or EXPIRED.
//  OwnerID          – subject of the passenger who created the hold.
//  PaymentSessionID – current payment session (empty until one is opened).
//  CreatedAt        – when the hold was created.
//  ExpiresAt        – when a PENDING hold becomes eligible for expiry.
//  UpdatedAt        – time of the last status transition.
type Hold struct {
    ID               string           `json:"id"`
    VehicleID        uint64           `json:"vehicle_id"`
    Seats            []SeatAssignment `json:"seats"`
    Status           HoldStatus       `json:"status"`
    OwnerID          string           `json:"owner_id,omitempty"`
    PaymentSessionID string           `json:"payment_session_id,omitempty"`
    CreatedAt        time.Time        `json:"created_at"`
    ExpiresAt        time.Time        `json:"expires_at"`
    UpdatedAt        time.Time        `json:"updated_at"`
}

// SeatNumbers returns the seat numbers of the hold in request order.
func (h *Hold) SeatNumbers() []int {
    out := make([]int, 0, len(h.Seats))
    for _, s := range h.Seats {
        out = append(out, s.SeatNumber)
    }
    return out
}

// ExpiredAt reports whether the hold's TTL has elapsed at now.
func (h *Hold) ExpiredAt(now time.Time) bool {
    return !now.Before(h.ExpiresAt)
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (h *Hold) Clone() *Hold {
    c := *h
    c.Seats = append([]SeatAssignment(nil), h.Seats...)
    return &c
}
