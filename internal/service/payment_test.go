package service

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

func (f *fixture) session(t *testing.T, h *model.Hold) *model.PaymentSession {
    t.Helper()
    s, err := f.coord.OpenSession(context.Background(), h.ID, testVehicle.Price(len(h.Seats)), "https://app.example.test/payment-status")
    require.NoError(t, err)
    return s
}

func TestOpenSession(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 1, 2)

    s, err := f.coord.OpenSession(ctx, h.ID, 3000, "https://app.example.test/return")
    require.NoError(t, err)
    assert.Equal(t, model.OutcomeOpen, s.Outcome)
    assert.Equal(t, int64(3000), s.AmountCents)
    assert.Equal(t, h.ID, s.HoldID)
    assert.NotEmpty(t, s.RedirectURL)

    require.Len(t, f.gateway.reqs, 1)
    assert.Equal(t, s.ID, f.gateway.reqs[0].SessionID)
    assert.Equal(t, "https://app.example.test/return", f.gateway.reqs[0].ReturnURL)

    got, err := f.holds.Get(ctx, h.ID)
    require.NoError(t, err)
    assert.Equal(t, s.ID, got.PaymentSessionID)

    stored, err := f.store.GetSession(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, int64(3000), stored.AmountCents)
}

func TestOpenSession_AmountMismatch(t *testing.T) {
    f := newFixture(t)
    h := f.hold(t, 1, 2)

    _, err := f.coord.OpenSession(context.Background(), h.ID, 1500, "")
    assert.True(t, errors.Is(err, model.ErrAmountMismatch))
    assert.Empty(t, f.gateway.reqs, "gateway is not contacted")
}

func TestOpenSession_HoldNotPending(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()

    h := f.hold(t, 1)
    _, err := f.holds.Cancel(ctx, h.ID)
    require.NoError(t, err)
    _, err = f.coord.OpenSession(ctx, h.ID, testVehicle.PriceCents, "")
    assert.True(t, errors.Is(err, model.ErrHoldNotPending))

    lapsed := f.hold(t, 2)
    f.clock.Advance(11 * time.Minute)
    _, err = f.coord.OpenSession(ctx, lapsed.ID, testVehicle.PriceCents, "")
    assert.True(t, errors.Is(err, model.ErrHoldNotPending))

    _, err = f.coord.OpenSession(ctx, "nope", testVehicle.PriceCents, "")
    assert.True(t, errors.Is(err, model.ErrHoldNotFound))
}

func TestOpenSession_GatewayFailure(t *testing.T) {
    f := newFixture(t)
    h := f.hold(t, 1)
    f.gateway.fail = errors.New("gateway timeout")

    _, err := f.coord.OpenSession(context.Background(), h.ID, testVehicle.PriceCents, "")
    require.Error(t, err)

    got, _ := f.holds.Get(context.Background(), h.ID)
    assert.Empty(t, got.PaymentSessionID)
    assert.Equal(t, model.HoldPending, got.Status)
}

func TestHandleOutcome_SucceededConfirms(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 4, 5)
    s := f.session(t, h)

    status, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldConfirmed, status)

    booked, _ := f.holds.BookedSeats(ctx, testVehicle.ID)
    assert.Equal(t, []int{4, 5}, booked)

    evs := f.events.ofType(model.EventHoldConfirmed)
    require.Len(t, evs, 1)
    assert.Equal(t, s.AmountCents, evs[0].AmountCents)

    got, err := f.coord.Session(ctx, s.ID)
    require.NoError(t, err)
    assert.Equal(t, model.OutcomeSucceeded, got.Outcome)
    assert.NotNil(t, got.ResolvedAt)
}

func TestHandleOutcome_DuplicatesAreNoOps(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 6)
    s := f.session(t, h)

    for i := 0; i < 3; i++ {
        status, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
        require.NoError(t, err)
        assert.Equal(t, model.HoldConfirmed, status)
    }
    status, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeFailed)
    require.NoError(t, err)
    assert.Equal(t, model.HoldConfirmed, status, "contradicting outcome after the first is ignored")

    assert.Len(t, f.events.ofType(model.EventHoldConfirmed), 1)
    assert.Empty(t, f.events.ofType(model.EventHoldCancelled))
}

func TestHandleOutcome_ConcurrentDuplicates(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 9)
    s := f.session(t, h)

    var wg sync.WaitGroup
    for i := 0; i < 25; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            status, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
            assert.NoError(t, err)
            assert.Equal(t, model.HoldConfirmed, status)
        }()
    }
    wg.Wait()

    assert.Len(t, f.events.ofType(model.EventHoldConfirmed), 1)
    tickets, _ := f.holds.Tickets(ctx, testVehicle.ID)
    assert.Len(t, tickets, 1)
}

func TestHandleOutcome_FailedCancels(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 14)
    s := f.session(t, h)

    status, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeFailed)
    require.NoError(t, err)
    assert.Equal(t, model.HoldCancelled, status)

    status, err = f.coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldCancelled, status)

    _, err = f.holds.CreateHold(ctx, testVehicle.ID, "c1", seats(14), 0)
    assert.NoError(t, err)
}

func TestHandleOutcome_SupersededFailureIgnored(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 15)
    first := f.session(t, h)
    second := f.session(t, h)

    status, err := f.coord.HandleOutcome(ctx, first.ID, model.OutcomeFailed)
    require.NoError(t, err)
    assert.Equal(t, model.HoldPending, status)

    status, err = f.coord.HandleOutcome(ctx, second.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldConfirmed, status)
}

func TestHandleOutcome_SupersededSuccessStillConfirms(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 16)
    first := f.session(t, h)
    _ = f.session(t, h)

    status, err := f.coord.HandleOutcome(ctx, first.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldConfirmed, status)
}

func TestHandleOutcome_SucceededAfterExpiry(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 17)
    s := f.session(t, h)

    f.clock.Advance(10 * time.Minute)
    require.NoError(t, f.holds.Expire(ctx, h.ID))

    status, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldExpired, status)

    booked, _ := f.holds.BookedSeats(ctx, testVehicle.ID)
    assert.Empty(t, booked)

    got, _ := f.coord.Session(ctx, s.ID)
    assert.Equal(t, model.OutcomeSucceeded, got.Outcome, "outcome recorded for reconciliation")
}

func TestHandleOutcome_ResolveFailureIsRetried(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 18)
    s := f.session(t, h)

    f.store.arm("resolve")
    _, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
    require.ErrorIs(t, err, errStoreDown)

    f.store.arm("")
    status, err := f.coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldConfirmed, status)
    assert.Len(t, f.events.ofType(model.EventHoldConfirmed), 1)
}

func TestHandleOutcome_Errors(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()

    _, err := f.coord.HandleOutcome(ctx, "unknown", model.OutcomeSucceeded)
    assert.True(t, errors.Is(err, model.ErrSessionNotFound))

    h := f.hold(t, 19)
    s := f.session(t, h)
    _, err = f.coord.HandleOutcome(ctx, s.ID, model.OutcomeOpen)
    assert.True(t, errors.Is(err, model.ErrInvalidRequest))
}

func TestHandleOutcome_AfterRestart(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    h := f.hold(t, 21)
    s := f.session(t, h)

    snap, err := f.store.LoadSnapshot(ctx)
    require.NoError(t, err)
    holds := NewHoldManager(f.store, f.store, NewLedger(), HoldConfig{}, WithClock(f.clock.Now))
    require.NoError(t, holds.Restore(snap))
    coord := NewCoordinator(holds, f.gateway, nil)
    coord.Restore(snap)

    status, err := coord.HandleOutcome(ctx, s.ID, model.OutcomeSucceeded)
    require.NoError(t, err)
    assert.Equal(t, model.HoldConfirmed, status)
}
