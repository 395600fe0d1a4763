package service

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap/zaptest"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
    "github.com/iliyamo/bus-seat-reservation/internal/repository"
)

var testVehicle = model.Vehicle{ID: 7, Number: "KA-01-2345", Name: "Night Express", Seats: 40, PriceCents: 1500}

type fakeClock struct {
    mu sync.Mutex
    t  time.Time
}

func newFakeClock() *fakeClock {
    return &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    c.t = c.t.Add(d)
    c.mu.Unlock()
}

type recorder struct {
    mu     sync.Mutex
    events []model.BookingEvent
}

func (r *recorder) Publish(_ context.Context, ev model.BookingEvent) error {
    r.mu.Lock()
    r.events = append(r.events, ev)
    r.mu.Unlock()
    return nil
}

func (r *recorder) ofType(typ string) []model.BookingEvent {
    r.mu.Lock()
    defer r.mu.Unlock()
    var out []model.BookingEvent
    for _, ev := range r.events {
        if ev.Type == typ {
            out = append(out, ev)
        }
    }
    return out
}

type countingInvalidator struct {
    mu    sync.Mutex
    calls map[uint64]int
}

func (c *countingInvalidator) Invalidate(_ context.Context, vehicleID uint64) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.calls == nil {
        c.calls = make(map[uint64]int)
    }
    c.calls[vehicleID]++
    return nil
}

type stubGateway struct {
    mu   sync.Mutex
    reqs []GatewayRequest
    fail error
}

func (g *stubGateway) OpenSession(_ context.Context, req GatewayRequest) (GatewaySession, error) {
    g.mu.Lock()
    defer g.mu.Unlock()
    if g.fail != nil {
        return GatewaySession{}, g.fail
    }
    g.reqs = append(g.reqs, req)
    return GatewaySession{
        ExternalRef: uuid.NewString(),
        RedirectURL: "https://pay.example.test/checkout/" + req.SessionID,
    }, nil
}

// flakyStore fails the named operation once armed.
type flakyStore struct {
    *repository.MemoryStore
    mu     sync.Mutex
    failOn string
}

var errStoreDown = errors.New("store down")

func (f *flakyStore) arm(op string) {
    f.mu.Lock()
    f.failOn = op
    f.mu.Unlock()
}

func (f *flakyStore) check(op string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.failOn == op {
        return errStoreDown
    }
    return nil
}

func (f *flakyStore) ConfirmHold(ctx context.Context, holdID string, entries []model.LedgerEntry, at time.Time) error {
    if err := f.check("confirm"); err != nil {
        return err
    }
    return f.MemoryStore.ConfirmHold(ctx, holdID, entries, at)
}

func (f *flakyStore) CreateHold(ctx context.Context, h *model.Hold) error {
    if err := f.check("create"); err != nil {
        return err
    }
    return f.MemoryStore.CreateHold(ctx, h)
}

func (f *flakyStore) ResolveSession(ctx context.Context, id string, outcome model.SessionOutcome, at time.Time) error {
    if err := f.check("resolve"); err != nil {
        return err
    }
    return f.MemoryStore.ResolveSession(ctx, id, outcome, at)
}

type fixture struct {
    store   *flakyStore
    clock   *fakeClock
    events  *recorder
    avail   *countingInvalidator
    gateway *stubGateway
    holds   *HoldManager
    coord   *Coordinator
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    f := &fixture{
        store:   &flakyStore{MemoryStore: repository.NewMemoryStore(testVehicle)},
        clock:   newFakeClock(),
        events:  &recorder{},
        avail:   &countingInvalidator{},
        gateway: &stubGateway{},
    }
    log := zaptest.NewLogger(t)
    f.holds = NewHoldManager(f.store, f.store, NewLedger(),
        HoldConfig{DefaultTTL: 10 * time.Minute, MaxTTL: 30 * time.Minute},
        WithClock(f.clock.Now),
        WithEvents(f.events),
        WithInvalidator(f.avail),
        WithLogger(log),
    )
    f.coord = NewCoordinator(f.holds, f.gateway, log)
    return f
}

func seats(numbers ...int) []model.SeatAssignment {
    out := make([]model.SeatAssignment, 0, len(numbers))
    for _, n := range numbers {
        out = append(out, model.SeatAssignment{
            SeatNumber:      n,
            PassengerName:   "Asha Rao",
            PassengerAge:    31,
            PassengerGender: "Female",
        })
    }
    return out
}

func (f *fixture) hold(t *testing.T, numbers ...int) *model.Hold {
    t.Helper()
    h, err := f.holds.CreateHold(context.Background(), testVehicle.ID, "c1", seats(numbers...), 0)
    if err != nil {
        t.Fatalf("create hold %v: %v", numbers, err)
    }
    return h
}
