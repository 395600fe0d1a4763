package repository

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

func TestParseVehicleSeed(t *testing.T) {
    got, err := ParseVehicleSeed("1:KA-01-1111:Morning Star:40:1500; 2:KA-02-2222:Night Rider:32:2000;")
    require.NoError(t, err)
    require.Len(t, got, 2)
    assert.Equal(t, model.Vehicle{ID: 1, Number: "KA-01-1111", Name: "Morning Star", Seats: 40, PriceCents: 1500}, got[0])
    assert.Equal(t, 32, got[1].Seats)

    for _, bad := range []string{"1:a:b:40", "x:a:b:40:1", "1:a:b:0:1", "1:a:b:40:-5", "1:a:b:40:0"} {
        _, err := ParseVehicleSeed(bad)
        assert.Error(t, err, bad)
    }

    empty, err := ParseVehicleSeed("")
    require.NoError(t, err)
    assert.Empty(t, empty)
}

func memHold(id string, seats ...int) *model.Hold {
    now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
    h := &model.Hold{ID: id, VehicleID: 1, Status: model.HoldPending, CreatedAt: now, ExpiresAt: now.Add(time.Minute), UpdatedAt: now}
    for _, n := range seats {
        h.Seats = append(h.Seats, model.SeatAssignment{SeatNumber: n, PassengerName: "P", PassengerAge: 30, PassengerGender: "Other"})
    }
    return h
}

func TestMemoryStore_HoldLifecycle(t *testing.T) {
    ctx := context.Background()
    s := NewMemoryStore(model.Vehicle{ID: 1, Seats: 10, PriceCents: 100})
    h := memHold("h1", 1, 2)
    require.NoError(t, s.CreateHold(ctx, h))
    assert.True(t, errors.Is(s.CreateHold(ctx, h), ErrConflict))

    h.Seats[0].PassengerName = "mutated"
    got, err := s.GetHold(ctx, "h1")
    require.NoError(t, err)
    assert.Equal(t, "P", got.Seats[0].PassengerName, "store keeps its own copy")

    at := h.CreatedAt.Add(time.Second)
    require.NoError(t, s.ConfirmHold(ctx, "h1", model.EntriesFor(got, at), at))
    err = s.ConfirmHold(ctx, "h1", nil, at)
    assert.True(t, errors.Is(err, model.ErrHoldNotPending))

    other := memHold("h2", 2)
    require.NoError(t, s.CreateHold(ctx, other))
    err = s.ConfirmHold(ctx, "h2", model.EntriesFor(other, at), at)
    assert.True(t, errors.Is(err, model.ErrSeatConflict))

    err = s.UpdateHoldStatus(ctx, "nope", model.HoldPending, model.HoldCancelled, at)
    assert.True(t, errors.Is(err, model.ErrHoldNotFound))
}

func TestMemoryStore_SessionsAndSnapshot(t *testing.T) {
    ctx := context.Background()
    s := NewMemoryStore(model.Vehicle{ID: 1, Seats: 10, PriceCents: 100})
    require.NoError(t, s.CreateHold(ctx, memHold("h1", 3)))

    ps := &model.PaymentSession{ID: "s1", HoldID: "h1", AmountCents: 100, Outcome: model.OutcomeOpen}
    require.NoError(t, s.CreateSession(ctx, ps))
    assert.True(t, errors.Is(s.CreateSession(ctx, ps), ErrConflict))
    assert.True(t, errors.Is(s.CreateSession(ctx, &model.PaymentSession{ID: "s2", HoldID: "zz"}), model.ErrHoldNotFound))

    snap, err := s.LoadSnapshot(ctx)
    require.NoError(t, err)
    require.Len(t, snap.Holds, 1)
    assert.Equal(t, "s1", snap.Holds[0].PaymentSessionID)
    require.Len(t, snap.Sessions, 1)

    at := time.Now().UTC()
    require.NoError(t, s.ResolveSession(ctx, "s1", model.OutcomeFailed, at))
    require.NoError(t, s.ResolveSession(ctx, "s1", model.OutcomeSucceeded, at))
    got, err := s.GetSession(ctx, "s1")
    require.NoError(t, err)
    assert.Equal(t, model.OutcomeFailed, got.Outcome, "first outcome is kept")

    require.NoError(t, s.ResetVehicle(ctx, 1, at))
    h, _ := s.GetHold(ctx, "h1")
    assert.Equal(t, model.HoldCancelled, h.Status)
    snap, _ = s.LoadSnapshot(ctx)
    assert.Empty(t, snap.Holds)
}

func TestMemoryStore_ResetRevokesConfirmed(t *testing.T) {
    ctx := context.Background()
    s := NewMemoryStore(model.Vehicle{ID: 1, Seats: 10, PriceCents: 100})
    booked := memHold("h1", 1, 2)
    require.NoError(t, s.CreateHold(ctx, booked))
    at := booked.CreatedAt.Add(time.Second)
    require.NoError(t, s.ConfirmHold(ctx, "h1", model.EntriesFor(booked, at), at))
    require.NoError(t, s.CreateHold(ctx, memHold("h2", 3)))

    require.NoError(t, s.ResetVehicle(ctx, 1, at))

    for _, id := range []string{"h1", "h2"} {
        h, err := s.GetHold(ctx, id)
        require.NoError(t, err)
        assert.Equal(t, model.HoldCancelled, h.Status, id)
    }
    snap, err := s.LoadSnapshot(ctx)
    require.NoError(t, err)
    assert.Empty(t, snap.Entries)

    err = s.ConfirmHold(ctx, "h1", model.EntriesFor(booked, at), at)
    assert.True(t, errors.Is(err, model.ErrHoldNotPending), "revoked hold cannot be confirmed again")
}
