package model

import "time"

// LedgerEntry is a confirmed seat.  There is at most one entry per
// (VehicleID, SeatNumber) and entries only exist for CONFIRMED holds.
type LedgerEntry struct {
    VehicleID       uint64    `json:"vehicle_id"`       // seat_ledger.vehicle_id
    SeatNumber      int       `json:"seat_number"`      // seat_ledger.seat_number
    PassengerName   string    `json:"passenger_name"`   // seat_ledger.passenger_name
    PassengerAge    int       `json:"passenger_age"`    // seat_ledger.passenger_age
    PassengerGender string    `json:"passenger_gender"` // seat_ledger.passenger_gender
    HoldID          string    `json:"hold_id"`          // seat_ledger.hold_id
    CreatedAt       time.Time `json:"created_at"`       // seat_ledger.created_at
}

// EntriesFor builds ledger entries for every seat of a hold.
func EntriesFor(h *Hold, at time.Time) []LedgerEntry {
    out := make([]LedgerEntry, 0, len(h.Seats))
    for _, s := range h.Seats {
        out = append(out, LedgerEntry{
            VehicleID:       h.VehicleID,
            SeatNumber:      s.SeatNumber,
            PassengerName:   s.PassengerName,
            PassengerAge:    s.PassengerAge,
            PassengerGender: s.PassengerGender,
            HoldID:          h.ID,
            CreatedAt:       at,
        })
    }
    return out
}
