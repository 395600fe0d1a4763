package service

import (
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

func entries(vehicleID uint64, holdID string, numbers ...int) []model.LedgerEntry {
    out := make([]model.LedgerEntry, 0, len(numbers))
    for _, n := range numbers {
        out = append(out, model.LedgerEntry{VehicleID: vehicleID, SeatNumber: n, HoldID: holdID})
    }
    return out
}

func TestLedger_IsAvailable(t *testing.T) {
    l := NewLedger()
    now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

    assert.True(t, l.IsAvailable(1, []int{1, 2, 3}, now))

    l.Reserve(1, "h1", []int{2}, now.Add(time.Minute))
    assert.False(t, l.IsAvailable(1, []int{1, 2}, now))
    assert.True(t, l.IsAvailable(1, []int{1, 3}, now))
    assert.True(t, l.IsAvailable(1, []int{2}, now.Add(time.Minute)), "coverage ends at expiresAt")

    require.NoError(t, l.Commit(1, entries(1, "h0", 5)))
    assert.False(t, l.IsAvailable(1, []int{5}, now))
    assert.True(t, l.IsAvailable(2, []int{5}, now), "vehicles are independent")
}

func TestLedger_CommitIsAllOrNothing(t *testing.T) {
    l := NewLedger()
    require.NoError(t, l.Commit(1, entries(1, "h1", 3)))

    err := l.Commit(1, entries(1, "h2", 1, 2, 3))
    require.Error(t, err)
    assert.True(t, errors.Is(err, model.ErrSeatConflict))
    assert.Equal(t, []int{3}, l.Booked(1), "no partial insert")
}

func TestLedger_CommitDropsOwnCoverage(t *testing.T) {
    l := NewLedger()
    until := time.Now().Add(time.Hour)
    l.Reserve(1, "h1", []int{1, 2}, until)

    require.NoError(t, l.Commit(1, entries(1, "h1", 1, 2)))
    assert.Empty(t, l.Held(1, time.Now()))
    assert.Equal(t, []int{1, 2}, l.Booked(1))
}

func TestLedger_UnreserveOnlyOwner(t *testing.T) {
    l := NewLedger()
    until := time.Now().Add(time.Hour)
    l.Reserve(1, "h1", []int{1}, until)
    l.Reserve(1, "h2", []int{2}, until)

    l.Unreserve(1, "h1", []int{1, 2})
    assert.Equal(t, []int{2}, l.Held(1, time.Now()))
    assert.ElementsMatch(t, []string{"h2"}, l.Coverers(1, []int{1, 2}))
}

func TestLedger_ReleaseAndEntries(t *testing.T) {
    l := NewLedger()
    require.NoError(t, l.Commit(1, entries(1, "h1", 4, 2)))

    got := l.Entries(1)
    require.Len(t, got, 2)
    assert.Equal(t, 2, got[0].SeatNumber)
    assert.Equal(t, 4, got[1].SeatNumber)

    assert.Equal(t, 2, l.Release(1, []int{2, 4, 9}))
    assert.Empty(t, l.Booked(1))
}
