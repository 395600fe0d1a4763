// Package service implements the seat reservation core: the per-vehicle
// seat ledger, the hold state machine, payment settlement, hold expiry and
// the administrative reset.  It talks to the outside world only through
// the interfaces declared in this file.
package service

import (
    "context"
    "time"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Store persists holds, ledger entries and payment sessions.  Each method
// is a single atomic unit: either everything it describes is durable or
// nothing is.  The service calls every method while holding the lock of
// the vehicle concerned, so implementations do not need to serialise
// writers for the same vehicle themselves.
type Store interface {
    // LoadSnapshot returns the state the service needs to rebuild its
    // in-memory view after a restart: every PENDING hold, every ledger
    // entry and every payment session bound to a PENDING hold.
    LoadSnapshot(ctx context.Context) (*model.Snapshot, error)
    // CreateHold inserts a new PENDING hold together with its seats.
    CreateHold(ctx context.Context, h *model.Hold) error
    // UpdateHoldStatus moves a hold from one status to another.  It
    // returns model.ErrHoldNotPending when the stored status is not from.
    UpdateHoldStatus(ctx context.Context, holdID string, from, to model.HoldStatus, at time.Time) error
    // ConfirmHold marks a PENDING hold CONFIRMED and inserts its ledger
    // entries in one transaction.  A seat that already has an entry
    // yields model.ErrSeatConflict and nothing is written.
    ConfirmHold(ctx context.Context, holdID string, entries []model.LedgerEntry, at time.Time) error
    // GetHold loads a hold by identifier (model.ErrHoldNotFound).
    GetHold(ctx context.Context, holdID string) (*model.Hold, error)
    // CreateSession stores an OPEN session and makes it the hold's current
    // session.
    CreateSession(ctx context.Context, s *model.PaymentSession) error
    // ResolveSession records the first outcome of a session.
    ResolveSession(ctx context.Context, sessionID string, outcome model.SessionOutcome, at time.Time) error
    // GetSession loads a session by identifier (model.ErrSessionNotFound).
    GetSession(ctx context.Context, sessionID string) (*model.PaymentSession, error)
    // ResetVehicle deletes every ledger entry of the vehicle and cancels
    // all of its PENDING holds in one transaction.
    ResetVehicle(ctx context.Context, vehicleID uint64, at time.Time) error
}

// VehicleCatalog supplies vehicle inventory.  The booking core never
// modifies vehicles.
type VehicleCatalog interface {
    GetVehicle(ctx context.Context, id uint64) (*model.Vehicle, error)
    ListVehicles(ctx context.Context) ([]model.Vehicle, error)
}

// GatewayRequest describes a checkout the payment gateway should open.
type GatewayRequest struct {
    SessionID   string
    HoldID      string
    AmountCents int64
    Description string
    ReturnURL   string
}

// GatewaySession is the gateway's answer to GatewayRequest.
type GatewaySession struct {
    ExternalRef string
    RedirectURL string
}

// Gateway opens checkout sessions at the external payment provider.
type Gateway interface {
    OpenSession(ctx context.Context, req GatewayRequest) (GatewaySession, error)
}

// EventPublisher receives booking events after a transition has been
// applied.  Publishing is best effort; a returned error is logged and the
// transition stands.
type EventPublisher interface {
    Publish(ctx context.Context, ev model.BookingEvent) error
}

// AvailabilityInvalidator is told whenever the booked seat set of a
// vehicle changes so that cached availability can be dropped.
type AvailabilityInvalidator interface {
    Invalidate(ctx context.Context, vehicleID uint64) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.BookingEvent) error { return nil }

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, uint64) error { return nil }

// Clock returns the current time.  Tests substitute a controllable clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
