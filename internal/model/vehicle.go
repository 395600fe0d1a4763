package model

// Vehicle is a bus whose seats can be held and booked.  Vehicles are
// supplied by the catalog and are never modified by the booking core.
// Seat numbers run from 1 to Seats inclusive.
//
// Fields:
//  ID         – primary key identifier.
//  Number     – operator-facing bus number (e.g. "KA-01-2345").
//  Name       – display name of the service.
//  Seats      – seat capacity.
//  PriceCents – unit price of one seat in cents.
type Vehicle struct {
    ID         uint64 `json:"id"`          // vehicles.id
    Number     string `json:"number"`      // vehicles.number
    Name       string `json:"name"`        // vehicles.name
    Seats      int    `json:"seats"`       // vehicles.seats
    PriceCents int64  `json:"price_cents"` // vehicles.price_cents
}

// HasSeat reports whether n is a valid seat number for the vehicle.
func (v *Vehicle) HasSeat(n int) bool {
    return n >= 1 && n <= v.Seats
}

// Price returns the amount charged for count seats.
func (v *Vehicle) Price(count int) int64 {
    return int64(count) * v.PriceCents
}
