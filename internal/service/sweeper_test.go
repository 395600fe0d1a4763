package service

import (
    "context"
    "errors"
    "fmt"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

type mockExpirer struct {
    mock.Mock
}

func (m *mockExpirer) ExpiredPending(now time.Time) []string {
    args := m.Called(now)
    ids, _ := args.Get(0).([]string)
    return ids
}

func (m *mockExpirer) Expire(ctx context.Context, holdID string) error {
    return m.Called(ctx, holdID).Error(0)
}

func TestSweeper_Sweep_ExpiresEachHold(t *testing.T) {
    holds := &mockExpirer{}
    holds.On("ExpiredPending", mock.Anything).Return([]string{"h1", "h2", "h3"})
    holds.On("Expire", mock.Anything, "h1").Return(nil)
    holds.On("Expire", mock.Anything, "h2").Return(errors.New("db error"))
    holds.On("Expire", mock.Anything, "h3").Return(nil)

    s := NewSweeper(holds, time.Second, zap.NewNop())

    assert.Equal(t, 2, s.Sweep(context.Background()), "a failing hold does not block the others")
    holds.AssertExpectations(t)
}

func TestSweeper_Sweep_IgnoresSettledHolds(t *testing.T) {
    holds := &mockExpirer{}
    holds.On("ExpiredPending", mock.Anything).Return([]string{"h1"})
    holds.On("Expire", mock.Anything, "h1").Return(fmt.Errorf("hold h1 is CONFIRMED: %w", model.ErrHoldNotPending))

    s := NewSweeper(holds, time.Second, zap.NewNop())

    assert.Equal(t, 0, s.Sweep(context.Background()))
    holds.AssertExpectations(t)
}

func TestSweeper_Start_Ticks(t *testing.T) {
    holds := &mockExpirer{}
    holds.On("ExpiredPending", mock.Anything).Return([]string(nil))

    s := NewSweeper(holds, 20*time.Millisecond, zap.NewNop())

    ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
    defer cancel()
    s.Start(ctx)

    assert.GreaterOrEqual(t, len(holds.Calls), 2)
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
    holds := &mockExpirer{}
    s := NewSweeper(holds, time.Hour, zap.NewNop())

    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan struct{})
    go func() {
        s.Start(ctx)
        close(done)
    }()
    cancel()

    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("sweeper did not stop on context cancel")
    }
}

func TestSweeper_ReleasesLapsedHolds(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    lapsed := f.hold(t, 1, 2)
    f.clock.Advance(5 * time.Minute)
    live := f.hold(t, 3)
    f.clock.Advance(5 * time.Minute)

    s := NewSweeper(f.holds, time.Second, zap.NewNop())
    s.now = f.clock.Now

    assert.Equal(t, 1, s.Sweep(ctx))

    got, err := f.holds.Get(ctx, lapsed.ID)
    require.NoError(t, err)
    assert.Equal(t, model.HoldExpired, got.Status)
    got, err = f.holds.Get(ctx, live.ID)
    require.NoError(t, err)
    assert.Equal(t, model.HoldPending, got.Status)

    av, err := f.holds.Availability(ctx, testVehicle.ID)
    require.NoError(t, err)
    assert.Equal(t, []int{3}, av.Held)
    assert.Len(t, f.events.ofType(model.EventHoldExpired), 1)
}
