package model

// BookingEvent types published to the broker.
const (
    EventHoldConfirmed = "hold.confirmed"
    EventHoldCancelled = "hold.cancelled"
    EventHoldExpired   = "hold.expired"
    EventVehicleReset  = "vehicle.reset"
)

// BookingEvent is emitted after a hold reaches a terminal state or a
// vehicle is reset.  It carries enough for downstream consumers to log or
// notify without querying the primary store.
type BookingEvent struct {
    Type        string `json:"type"`
    HoldID      string `json:"hold_id,omitempty"`
    VehicleID   uint64 `json:"vehicle_id"`
    Seats       []int  `json:"seats"`
    AmountCents int64  `json:"amount_cents,omitempty"`
    Actor       string `json:"actor,omitempty"`
    Cleared     int    `json:"cleared,omitempty"`
    OccurredAt  string `json:"occurred_at"`
}
