package service

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// HoldConfig bounds the TTL a caller may request for a hold.
type HoldConfig struct {
    DefaultTTL time.Duration // used when the caller does not ask for a TTL
    MaxTTL     time.Duration // upper bound for a requested TTL
}

// pendingRef is the sweeper's view of a PENDING hold.
type pendingRef struct {
    vehicleID uint64
    expiresAt time.Time
}

// HoldManager owns the hold state machine
// PENDING → CONFIRMED | CANCELLED | EXPIRED.
//
// Every transition runs inside the vehicle's critical section in three
// steps: check the preconditions against the in-memory state, persist
// through the Store, then apply to memory.  A Store failure therefore
// leaves both memory and storage untouched.
type HoldManager struct {
    store   Store
    catalog VehicleCatalog
    ledger  *Ledger
    locks   *vehicleLocks
    cfg     HoldConfig
    events  EventPublisher
    avail   AvailabilityInvalidator
    log     *zap.Logger
    now     Clock

    mu      sync.RWMutex
    holds   map[string]*model.Hold // every hold seen by this process
    pending map[string]pendingRef  // subset of holds still PENDING
}

// Option customises a HoldManager.
type Option func(*HoldManager)

// WithEvents sets the publisher notified after each transition.
func WithEvents(p EventPublisher) Option {
    return func(m *HoldManager) {
        if p != nil {
            m.events = p
        }
    }
}

// WithInvalidator sets the availability cache notified when booked seats
// change.
func WithInvalidator(a AvailabilityInvalidator) Option {
    return func(m *HoldManager) {
        if a != nil {
            m.avail = a
        }
    }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
    return func(m *HoldManager) {
        if l != nil {
            m.log = l
        }
    }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
    return func(m *HoldManager) {
        if c != nil {
            m.now = c
        }
    }
}

// NewHoldManager wires a hold manager.  store, catalog and ledger must be
// non-nil.
func NewHoldManager(store Store, catalog VehicleCatalog, ledger *Ledger, cfg HoldConfig, opts ...Option) *HoldManager {
    if store == nil || catalog == nil || ledger == nil {
        panic("service: NewHoldManager requires store, catalog and ledger")
    }
    if cfg.DefaultTTL <= 0 {
        cfg.DefaultTTL = 10 * time.Minute
    }
    if cfg.MaxTTL < cfg.DefaultTTL {
        cfg.MaxTTL = cfg.DefaultTTL
    }
    m := &HoldManager{
        store:   store,
        catalog: catalog,
        ledger:  ledger,
        locks:   newVehicleLocks(),
        cfg:     cfg,
        events:  nopPublisher{},
        avail:   nopInvalidator{},
        log:     zap.NewNop(),
        now:     systemClock,
        holds:   make(map[string]*model.Hold),
        pending: make(map[string]pendingRef),
    }
    for _, o := range opts {
        o(m)
    }
    return m
}

// Restore rebuilds the in-memory view from a snapshot.  It must run before
// the manager serves requests.
func (m *HoldManager) Restore(snap *model.Snapshot) error {
    if snap == nil {
        return nil
    }
    byVehicle := make(map[uint64][]model.LedgerEntry)
    for _, e := range snap.Entries {
        byVehicle[e.VehicleID] = append(byVehicle[e.VehicleID], e)
    }
    for vid, entries := range byVehicle {
        unlock := m.locks.lock(vid)
        err := m.ledger.Commit(vid, entries)
        unlock()
        if err != nil {
            return fmt.Errorf("restore ledger for vehicle %d: %w", vid, err)
        }
    }
    for _, h := range snap.Holds {
        if h.Status != model.HoldPending {
            continue
        }
        unlock := m.locks.lock(h.VehicleID)
        m.track(h)
        unlock()
    }
    m.log.Info("hold state restored",
        zap.Int("pending_holds", len(m.pending)),
        zap.Int("ledger_entries", len(snap.Entries)),
    )
    return nil
}

// track indexes h and, if PENDING, reserves its seats.  Caller holds the
// vehicle lock.
func (m *HoldManager) track(h *model.Hold) {
    m.mu.Lock()
    m.holds[h.ID] = h
    if h.Status == model.HoldPending {
        m.pending[h.ID] = pendingRef{vehicleID: h.VehicleID, expiresAt: h.ExpiresAt}
    }
    m.mu.Unlock()
    if h.Status == model.HoldPending {
        m.ledger.Reserve(h.VehicleID, h.ID, h.SeatNumbers(), h.ExpiresAt)
    }
}

// settle records that h left PENDING.  Caller holds the vehicle lock.
func (m *HoldManager) settle(h *model.Hold, to model.HoldStatus, at time.Time) {
    h.Status = to
    h.UpdatedAt = at
    m.mu.Lock()
    delete(m.pending, h.ID)
    m.mu.Unlock()
}

// lookup finds a hold in memory, falling back to the store for holds that
// settled before this process started.
func (m *HoldManager) lookup(ctx context.Context, holdID string) (*model.Hold, error) {
    m.mu.RLock()
    h, ok := m.holds[holdID]
    m.mu.RUnlock()
    if ok {
        return h, nil
    }
    stored, err := m.store.GetHold(ctx, holdID)
    if err != nil {
        return nil, err
    }
    unlock := m.locks.lock(stored.VehicleID)
    defer unlock()
    m.mu.RLock()
    h, ok = m.holds[holdID]
    m.mu.RUnlock()
    if ok {
        return h, nil
    }
    m.track(stored)
    return stored, nil
}

// withHold runs fn inside the critical section of the hold's vehicle.
func (m *HoldManager) withHold(ctx context.Context, holdID string, fn func(h *model.Hold, now time.Time) error) error {
    if holdID == "" {
        return fmt.Errorf("empty hold id: %w", model.ErrInvalidRequest)
    }
    h, err := m.lookup(ctx, holdID)
    if err != nil {
        return err
    }
    unlock := m.locks.lock(h.VehicleID)
    defer unlock()
    return fn(h, m.now())
}

// CreateHold reserves seats on a vehicle for ttl (zero means the default
// TTL) on behalf of owner.  Stale PENDING holds covering any requested seat
// are expired first so a lapsed TTL never blocks a new reservation.
func (m *HoldManager) CreateHold(ctx context.Context, vehicleID uint64, owner string, seats []model.SeatAssignment, ttl time.Duration) (*model.Hold, error) {
    if ttl == 0 {
        ttl = m.cfg.DefaultTTL
    }
    if ttl < 0 || ttl > m.cfg.MaxTTL {
        return nil, fmt.Errorf("ttl %s outside (0, %s]: %w", ttl, m.cfg.MaxTTL, model.ErrInvalidRequest)
    }
    vehicle, err := m.catalog.GetVehicle(ctx, vehicleID)
    if err != nil {
        return nil, err
    }
    assignments, err := normaliseSeats(vehicle, seats)
    if err != nil {
        return nil, err
    }
    numbers := make([]int, 0, len(assignments))
    for _, a := range assignments {
        numbers = append(numbers, a.SeatNumber)
    }

    var evs []model.BookingEvent
    hold, err := func() (*model.Hold, error) {
        unlock := m.locks.lock(vehicleID)
        defer unlock()
        now := m.now()

        for _, id := range m.ledger.Coverers(vehicleID, numbers) {
            m.mu.RLock()
            stale := m.holds[id]
            m.mu.RUnlock()
            if stale == nil || stale.Status != model.HoldPending || !stale.ExpiredAt(now) {
                continue
            }
            ev, err := m.expireLocked(ctx, stale, now)
            if err != nil {
                return nil, err
            }
            evs = append(evs, ev)
        }

        if !m.ledger.IsAvailable(vehicleID, numbers, now) {
            return nil, fmt.Errorf("vehicle %d seats %v: %w", vehicleID, numbers, model.ErrSeatUnavailable)
        }
        h := &model.Hold{
            ID:        uuid.NewString(),
            VehicleID: vehicleID,
            Seats:     assignments,
            Status:    model.HoldPending,
            OwnerID:   owner,
            CreatedAt: now,
            ExpiresAt: now.Add(ttl),
            UpdatedAt: now,
        }
        if err := m.store.CreateHold(ctx, h); err != nil {
            return nil, fmt.Errorf("persist hold: %w", err)
        }
        m.track(h)
        return h.Clone(), nil
    }()
    m.emit(ctx, evs...)
    if err != nil {
        return nil, err
    }
    m.log.Info("hold created",
        zap.String("hold_id", hold.ID),
        zap.Uint64("vehicle_id", vehicleID),
        zap.String("owner", owner),
        zap.Ints("seats", numbers),
        zap.Time("expires_at", hold.ExpiresAt),
    )
    return hold, nil
}

// normaliseSeats validates a seat request against the vehicle and returns
// the assignments with trimmed passenger fields.
func normaliseSeats(v *model.Vehicle, seats []model.SeatAssignment) ([]model.SeatAssignment, error) {
    if len(seats) == 0 {
        return nil, fmt.Errorf("no seats requested: %w", model.ErrInvalidRequest)
    }
    seen := make(map[int]struct{}, len(seats))
    out := make([]model.SeatAssignment, 0, len(seats))
    for _, s := range seats {
        if !v.HasSeat(s.SeatNumber) {
            return nil, fmt.Errorf("seat %d outside 1..%d: %w", s.SeatNumber, v.Seats, model.ErrInvalidRequest)
        }
        if _, dup := seen[s.SeatNumber]; dup {
            return nil, fmt.Errorf("seat %d requested twice: %w", s.SeatNumber, model.ErrInvalidRequest)
        }
        seen[s.SeatNumber] = struct{}{}
        s.PassengerName = strings.TrimSpace(s.PassengerName)
        if s.PassengerName == "" {
            return nil, fmt.Errorf("seat %d: passenger name required: %w", s.SeatNumber, model.ErrInvalidRequest)
        }
        if s.PassengerAge < 1 || s.PassengerAge > 120 {
            return nil, fmt.Errorf("seat %d: passenger age %d: %w", s.SeatNumber, s.PassengerAge, model.ErrInvalidRequest)
        }
        gender, ok := parseGender(s.PassengerGender)
        if !ok {
            return nil, fmt.Errorf("seat %d: passenger gender %q: %w", s.SeatNumber, s.PassengerGender, model.ErrInvalidRequest)
        }
        s.PassengerGender = gender
        out = append(out, s)
    }
    return out, nil
}

func parseGender(g string) (string, bool) {
    switch strings.ToLower(strings.TrimSpace(g)) {
    case "male":
        return "Male", true
    case "female":
        return "Female", true
    case "other":
        return "Other", true
    }
    return "", false
}

// Confirm commits a PENDING hold whose TTL has not elapsed.  Confirming a
// CONFIRMED hold is a no-op that returns the hold.
func (m *HoldManager) Confirm(ctx context.Context, holdID string) (*model.Hold, error) {
    var out *model.Hold
    var ev *model.BookingEvent
    err := m.withHold(ctx, holdID, func(h *model.Hold, now time.Time) error {
        e, err := m.confirmLocked(ctx, h, now)
        if err != nil {
            return err
        }
        ev = e
        out = h.Clone()
        return nil
    })
    if err != nil {
        return nil, err
    }
    if ev != nil {
        m.emit(ctx, *ev)
    }
    return out, nil
}

// confirmLocked returns a nil event when the hold was already confirmed.
func (m *HoldManager) confirmLocked(ctx context.Context, h *model.Hold, now time.Time) (*model.BookingEvent, error) {
    if h.Status == model.HoldConfirmed {
        return nil, nil
    }
    if h.Status != model.HoldPending {
        return nil, fmt.Errorf("hold %s is %s: %w", h.ID, h.Status, model.ErrHoldNotPending)
    }
    if h.ExpiredAt(now) {
        return nil, fmt.Errorf("hold %s expired at %s: %w", h.ID, h.ExpiresAt.Format(time.RFC3339), model.ErrHoldNotPending)
    }
    if err := m.ledger.Conflict(h.VehicleID, h.SeatNumbers()); err != nil {
        return nil, err
    }
    entries := model.EntriesFor(h, now)
    if err := m.store.ConfirmHold(ctx, h.ID, entries, now); err != nil {
        return nil, fmt.Errorf("persist confirmation: %w", err)
    }
    if err := m.ledger.Commit(h.VehicleID, entries); err != nil {
        return nil, err
    }
    m.settle(h, model.HoldConfirmed, now)
    if err := m.avail.Invalidate(ctx, h.VehicleID); err != nil {
        m.log.Warn("availability invalidation failed", zap.Uint64("vehicle_id", h.VehicleID), zap.Error(err))
    }
    m.log.Info("hold confirmed",
        zap.String("hold_id", h.ID),
        zap.Uint64("vehicle_id", h.VehicleID),
        zap.String("status", string(h.Status)),
    )
    return m.event(model.EventHoldConfirmed, h, now), nil
}

// Cancel releases a PENDING hold.  Cancelling a CANCELLED hold is a no-op.
func (m *HoldManager) Cancel(ctx context.Context, holdID string) (*model.Hold, error) {
    var out *model.Hold
    var ev *model.BookingEvent
    err := m.withHold(ctx, holdID, func(h *model.Hold, now time.Time) error {
        e, err := m.cancelLocked(ctx, h, now)
        if err != nil {
            return err
        }
        ev = e
        out = h.Clone()
        return nil
    })
    if err != nil {
        return nil, err
    }
    if ev != nil {
        m.emit(ctx, *ev)
    }
    return out, nil
}

func (m *HoldManager) cancelLocked(ctx context.Context, h *model.Hold, now time.Time) (*model.BookingEvent, error) {
    if h.Status == model.HoldCancelled {
        return nil, nil
    }
    if h.Status != model.HoldPending {
        return nil, fmt.Errorf("hold %s is %s: %w", h.ID, h.Status, model.ErrHoldNotPending)
    }
    if err := m.store.UpdateHoldStatus(ctx, h.ID, model.HoldPending, model.HoldCancelled, now); err != nil {
        return nil, fmt.Errorf("persist cancellation: %w", err)
    }
    m.ledger.Unreserve(h.VehicleID, h.ID, h.SeatNumbers())
    m.settle(h, model.HoldCancelled, now)
    m.log.Info("hold cancelled",
        zap.String("hold_id", h.ID),
        zap.Uint64("vehicle_id", h.VehicleID),
        zap.String("status", string(h.Status)),
    )
    return m.event(model.EventHoldCancelled, h, now), nil
}

// Expire moves a PENDING hold whose TTL has elapsed to EXPIRED.  Any other
// state yields model.ErrHoldNotPending, which callers treat as benign.
func (m *HoldManager) Expire(ctx context.Context, holdID string) error {
    var ev model.BookingEvent
    err := m.withHold(ctx, holdID, func(h *model.Hold, now time.Time) error {
        e, err := m.expireLocked(ctx, h, now)
        if err != nil {
            return err
        }
        ev = e
        return nil
    })
    if err != nil {
        return err
    }
    m.emit(ctx, ev)
    return nil
}

func (m *HoldManager) expireLocked(ctx context.Context, h *model.Hold, now time.Time) (model.BookingEvent, error) {
    if h.Status != model.HoldPending {
        return model.BookingEvent{}, fmt.Errorf("hold %s is %s: %w", h.ID, h.Status, model.ErrHoldNotPending)
    }
    if !h.ExpiredAt(now) {
        return model.BookingEvent{}, fmt.Errorf("hold %s runs until %s: %w", h.ID, h.ExpiresAt.Format(time.RFC3339), model.ErrHoldNotPending)
    }
    if err := m.store.UpdateHoldStatus(ctx, h.ID, model.HoldPending, model.HoldExpired, now); err != nil {
        return model.BookingEvent{}, fmt.Errorf("persist expiry: %w", err)
    }
    m.ledger.Unreserve(h.VehicleID, h.ID, h.SeatNumbers())
    m.settle(h, model.HoldExpired, now)
    m.log.Info("hold expired",
        zap.String("hold_id", h.ID),
        zap.Uint64("vehicle_id", h.VehicleID),
        zap.String("status", string(h.Status)),
    )
    return *m.event(model.EventHoldExpired, h, now), nil
}

// Get returns a copy of the hold.
func (m *HoldManager) Get(ctx context.Context, holdID string) (*model.Hold, error) {
    var out *model.Hold
    err := m.withHold(ctx, holdID, func(h *model.Hold, _ time.Time) error {
        out = h.Clone()
        return nil
    })
    return out, err
}

// Authorize reports model.ErrHoldNotFound unless actor owns the hold or is
// an admin, so other passengers cannot tell that the hold exists.
func (m *HoldManager) Authorize(ctx context.Context, holdID string, actor Actor) error {
    return m.withHold(ctx, holdID, func(h *model.Hold, _ time.Time) error {
        if actor.Role == RoleAdmin || (actor.ID != "" && h.OwnerID == actor.ID) {
            return nil
        }
        return fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
    })
}

// ExpiredPending lists PENDING holds whose TTL has elapsed at now, oldest
// deadline first.
func (m *HoldManager) ExpiredPending(now time.Time) []string {
    type due struct {
        id string
        at time.Time
    }
    m.mu.RLock()
    var list []due
    for id, ref := range m.pending {
        if !now.Before(ref.expiresAt) {
            list = append(list, due{id: id, at: ref.expiresAt})
        }
    }
    m.mu.RUnlock()
    sort.Slice(list, func(i, j int) bool { return list[i].at.Before(list[j].at) })
    out := make([]string, 0, len(list))
    for _, d := range list {
        out = append(out, d.id)
    }
    return out
}

// Availability is the seat picture of one vehicle at a point in time.
type Availability struct {
    VehicleID uint64 `json:"vehicle_id"`
    Capacity  int    `json:"capacity"`
    Booked    []int  `json:"booked"`
    Held      []int  `json:"held"`
    Available []int  `json:"available"`
}

// Availability reports which seats are booked, held or free.
func (m *HoldManager) Availability(ctx context.Context, vehicleID uint64) (*Availability, error) {
    vehicle, err := m.catalog.GetVehicle(ctx, vehicleID)
    if err != nil {
        return nil, err
    }
    unlock := m.locks.lock(vehicleID)
    now := m.now()
    booked := m.ledger.Booked(vehicleID)
    held := m.ledger.Held(vehicleID, now)
    unlock()

    taken := make(map[int]struct{}, len(booked)+len(held))
    for _, n := range booked {
        taken[n] = struct{}{}
    }
    for _, n := range held {
        taken[n] = struct{}{}
    }
    free := make([]int, 0, max(vehicle.Seats-len(taken), 0))
    for n := 1; n <= vehicle.Seats; n++ {
        if _, ok := taken[n]; !ok {
            free = append(free, n)
        }
    }
    return &Availability{
        VehicleID: vehicleID,
        Capacity:  vehicle.Seats,
        Booked:    booked,
        Held:      held,
        Available: free,
    }, nil
}

// BookedSeats returns the confirmed seat numbers of a vehicle.
func (m *HoldManager) BookedSeats(ctx context.Context, vehicleID uint64) ([]int, error) {
    if _, err := m.catalog.GetVehicle(ctx, vehicleID); err != nil {
        return nil, err
    }
    unlock := m.locks.lock(vehicleID)
    defer unlock()
    return m.ledger.Booked(vehicleID), nil
}

// Tickets returns the ledger entries of a vehicle.
func (m *HoldManager) Tickets(ctx context.Context, vehicleID uint64) ([]model.LedgerEntry, error) {
    if _, err := m.catalog.GetVehicle(ctx, vehicleID); err != nil {
        return nil, err
    }
    unlock := m.locks.lock(vehicleID)
    defer unlock()
    return m.ledger.Entries(vehicleID), nil
}

func (m *HoldManager) event(typ string, h *model.Hold, now time.Time) *model.BookingEvent {
    return &model.BookingEvent{
        Type:       typ,
        HoldID:     h.ID,
        VehicleID:  h.VehicleID,
        Seats:      h.SeatNumbers(),
        OccurredAt: now.UTC().Format(time.RFC3339),
    }
}

// emit publishes events outside any vehicle lock.  Confirmation events are
// priced from the catalog when the caller did not supply an amount.
func (m *HoldManager) emit(ctx context.Context, evs ...model.BookingEvent) {
    ctx = context.WithoutCancel(ctx)
    for _, ev := range evs {
        if ev.Type == model.EventHoldConfirmed && ev.AmountCents == 0 {
            if v, err := m.catalog.GetVehicle(ctx, ev.VehicleID); err == nil {
                ev.AmountCents = v.Price(len(ev.Seats))
            }
        }
        if err := m.events.Publish(ctx, ev); err != nil {
            m.log.Warn("publish booking event failed",
                zap.String("type", ev.Type),
                zap.String("hold_id", ev.HoldID),
                zap.Uint64("vehicle_id", ev.VehicleID),
                zap.Error(err),
            )
        }
    }
}

// IsBenign reports whether err only says the hold already left PENDING.
func IsBenign(err error) bool {
    return errors.Is(err, model.ErrHoldNotPending)
}
