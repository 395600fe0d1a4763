package service

import (
    "context"
    "fmt"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// RoleAdmin is the only role allowed to reset a vehicle.
const RoleAdmin = "ADMIN"

// Actor identifies the caller of an administrative operation.
type Actor struct {
    ID   string
    Role string
}

// ResetVehicle clears every ledger entry of a vehicle and cancels all of
// its PENDING and CONFIRMED holds in one atomic step.  A revoked CONFIRMED
// hold can no longer be confirmed or resurrected by a late callback.  It
// returns the number of seats freed: booked seats plus seats of the
// cancelled PENDING holds.
func (m *HoldManager) ResetVehicle(ctx context.Context, vehicleID uint64, actor Actor) (int, error) {
    if actor.Role != RoleAdmin {
        return 0, fmt.Errorf("role %q may not reset vehicles: %w", actor.Role, model.ErrUnauthorized)
    }
    if _, err := m.catalog.GetVehicle(ctx, vehicleID); err != nil {
        return 0, err
    }

    unlock := m.locks.lock(vehicleID)
    now := m.now()
    booked := m.ledger.Booked(vehicleID)
    var cancelled, revoked []*model.Hold
    m.mu.RLock()
    for id, ref := range m.pending {
        if ref.vehicleID == vehicleID {
            cancelled = append(cancelled, m.holds[id])
        }
    }
    seen := make(map[string]struct{})
    for _, e := range m.ledger.Entries(vehicleID) {
        if _, dup := seen[e.HoldID]; dup {
            continue
        }
        seen[e.HoldID] = struct{}{}
        // Holds confirmed before a restart are not indexed; the store
        // revokes them and lookup loads them back CANCELLED.
        if h := m.holds[e.HoldID]; h != nil && h.Status == model.HoldConfirmed {
            revoked = append(revoked, h)
        }
    }
    m.mu.RUnlock()

    if err := m.store.ResetVehicle(ctx, vehicleID, now); err != nil {
        unlock()
        return 0, fmt.Errorf("persist reset: %w", err)
    }
    cleared := m.ledger.Release(vehicleID, booked)
    for _, h := range cancelled {
        seats := h.SeatNumbers()
        m.ledger.Unreserve(vehicleID, h.ID, seats)
        m.settle(h, model.HoldCancelled, now)
        cleared += len(seats)
    }
    for _, h := range revoked {
        m.settle(h, model.HoldCancelled, now)
    }
    unlock()

    if err := m.avail.Invalidate(ctx, vehicleID); err != nil {
        m.log.Warn("availability invalidation failed", zap.Uint64("vehicle_id", vehicleID), zap.Error(err))
    }
    m.log.Info("vehicle reset",
        zap.Uint64("vehicle_id", vehicleID),
        zap.String("actor", actor.ID),
        zap.Int("booked_cleared", len(booked)),
        zap.Int("holds_cancelled", len(cancelled)),
        zap.Int("holds_revoked", len(revoked)),
        zap.Int("cleared", cleared),
    )
    m.emit(ctx, model.BookingEvent{
        Type:       model.EventVehicleReset,
        VehicleID:  vehicleID,
        Seats:      booked,
        Actor:      actor.ID,
        Cleared:    cleared,
        OccurredAt: now.UTC().Format(time.RFC3339),
    })
    return cleared, nil
}
