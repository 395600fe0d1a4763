package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

var admin = Actor{ID: "42", Role: RoleAdmin}

func TestResetVehicle(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()

    booked := f.hold(t, 1, 2, 3)
    _, err := f.holds.Confirm(ctx, booked.ID)
    require.NoError(t, err)
    pending := f.hold(t, 4, 5)
    s := f.session(t, pending)

    cleared, err := f.holds.ResetVehicle(ctx, testVehicle.ID, admin)
    require.NoError(t, err)
    assert.Equal(t, 5, cleared)

    av, err := f.holds.Availability(ctx, testVehicle.ID)
    require.NoError(t, err)
    assert.Empty(t, av.Booked)
    assert.Empty(t, av.Held)
    assert.Len(t, av.Available, testVehicle.Seats)

    got, _ := f.holds.Get(ctx, pending.ID)
    assert.Equal(t, model.HoldCancelled, got.Status)
    got, _ = f.holds.Get(ctx, booked.ID)
    assert.Equal(t, model.HoldCancelled, got.Status, "reset revokes confirmed holds")

    status, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldCancelled, status, "late payment does not resurrect a reset hold")

    snap, err := f.store.LoadSnapshot(ctx)
    require.NoError(t, err)
    assert.Empty(t, snap.Entries)
    assert.Empty(t, snap.Holds)

    evs := f.events.ofType(model.EventVehicleReset)
    require.Len(t, evs, 1)
    assert.Equal(t, "42", evs[0].Actor)
    assert.Equal(t, 5, evs[0].Cleared)
    assert.Equal(t, 2, f.avail.calls[testVehicle.ID])
}

func TestResetVehicle_RevokedHoldStaysCancelled(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()

    h1 := f.hold(t, 1, 2)
    s1 := f.session(t, h1)
    status, err := f.coord.HandleOutcome(ctx, s1.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    require.Equal(t, model.HoldConfirmed, status)

    _, err = f.holds.ResetVehicle(ctx, testVehicle.ID, admin)
    require.NoError(t, err)

    got, err := f.holds.Get(ctx, h1.ID)
    require.NoError(t, err)
    assert.Equal(t, model.HoldCancelled, got.Status)
    stored, err := f.store.GetHold(ctx, h1.ID)
    require.NoError(t, err)
    assert.Equal(t, model.HoldCancelled, stored.Status)

    _, err = f.holds.Confirm(ctx, h1.ID)
    assert.True(t, errors.Is(err, model.ErrHoldNotPending), "got %v", err)

    status, err = f.coord.HandleOutcome(ctx, s1.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldCancelled, status, "duplicate callback reports the revoked status")

    h3 := f.hold(t, 1)
    _, err = f.holds.Confirm(ctx, h3.ID)
    require.NoError(t, err)
    _, err = f.holds.Confirm(ctx, h1.ID)
    assert.True(t, errors.Is(err, model.ErrHoldNotPending))

    tickets, err := f.holds.Tickets(ctx, testVehicle.ID)
    require.NoError(t, err)
    require.Len(t, tickets, 1)
    assert.Equal(t, h3.ID, tickets[0].HoldID)
    assert.Equal(t, 1, tickets[0].SeatNumber)

    restarted := NewHoldManager(f.store, f.store, NewLedger(),
        HoldConfig{DefaultTTL: 10 * time.Minute, MaxTTL: 30 * time.Minute},
        WithClock(f.clock.Now),
    )
    got, err = restarted.Get(ctx, h1.ID)
    require.NoError(t, err)
    assert.Equal(t, model.HoldCancelled, got.Status, "revocation survives a restart")
}

func TestResetVehicle_EmptyVehicle(t *testing.T) {
    f := newFixture(t)
    cleared, err := f.holds.ResetVehicle(context.Background(), testVehicle.ID, admin)
    require.NoError(t, err)
    assert.Zero(t, cleared)
}

func TestResetVehicle_Errors(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    f.hold(t, 1)

    _, err := f.holds.ResetVehicle(ctx, testVehicle.ID, Actor{ID: "7", Role: "CUSTOMER"})
    assert.True(t, errors.Is(err, model.ErrUnauthorized))
    av, _ := f.holds.Availability(ctx, testVehicle.ID)
    assert.Equal(t, []int{1}, av.Held, "unauthorised reset changes nothing")

    _, err = f.holds.ResetVehicle(ctx, 999, admin)
    assert.True(t, errors.Is(err, model.ErrVehicleNotFound))
}
