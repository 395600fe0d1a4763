package repository

import (
    "context"
    "fmt"
    "sort"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// MemoryStore keeps holds, ledger entries, payment sessions and vehicles
// in process memory.  It is used for local development (STORE_DRIVER=memory)
// and in tests.  Every method copies values in and out so callers never
// share state with the store.
type MemoryStore struct {
    mu       sync.RWMutex
    vehicles map[uint64]model.Vehicle
    holds    map[string]*model.Hold
    ledger   map[uint64]map[int]model.LedgerEntry
    sessions map[string]*model.PaymentSession
}

// NewMemoryStore returns a store pre-populated with vehicles.
func NewMemoryStore(vehicles ...model.Vehicle) *MemoryStore {
    s := &MemoryStore{
        vehicles: make(map[uint64]model.Vehicle),
        holds:    make(map[string]*model.Hold),
        ledger:   make(map[uint64]map[int]model.LedgerEntry),
        sessions: make(map[string]*model.PaymentSession),
    }
    for _, v := range vehicles {
        s.vehicles[v.ID] = v
    }
    return s
}

// ParseVehicleSeed parses a VEHICLE_SEED value of the form
// "id:number:name:seats:price_cents;..." into vehicles.
func ParseVehicleSeed(seed string) ([]model.Vehicle, error) {
    var out []model.Vehicle
    for _, item := range strings.Split(seed, ";") {
        item = strings.TrimSpace(item)
        if item == "" {
            continue
        }
        parts := strings.Split(item, ":")
        if len(parts) != 5 {
            return nil, fmt.Errorf("vehicle seed %q: want id:number:name:seats:price_cents", item)
        }
        id, err := strconv.ParseUint(parts[0], 10, 64)
        if err != nil || id == 0 {
            return nil, fmt.Errorf("vehicle seed %q: bad id", item)
        }
        seats, err := strconv.Atoi(parts[3])
        if err != nil || seats <= 0 {
            return nil, fmt.Errorf("vehicle seed %q: bad seat count", item)
        }
        price, err := strconv.ParseInt(parts[4], 10, 64)
        if err != nil || price <= 0 {
            return nil, fmt.Errorf("vehicle seed %q: bad price", item)
        }
        out = append(out, model.Vehicle{
            ID:         id,
            Number:     strings.TrimSpace(parts[1]),
            Name:       strings.TrimSpace(parts[2]),
            Seats:      seats,
            PriceCents: price,
        })
    }
    return out, nil
}

// GetVehicle returns a vehicle by ID.
func (s *MemoryStore) GetVehicle(_ context.Context, id uint64) (*model.Vehicle, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    v, ok := s.vehicles[id]
    if !ok {
        return nil, fmt.Errorf("vehicle %d: %w", id, model.ErrVehicleNotFound)
    }
    return &v, nil
}

// ListVehicles returns all vehicles ordered by ID.
func (s *MemoryStore) ListVehicles(_ context.Context) ([]model.Vehicle, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]model.Vehicle, 0, len(s.vehicles))
    for _, v := range s.vehicles {
        out = append(out, v)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

// LoadSnapshot implements service.Store.
func (s *MemoryStore) LoadSnapshot(_ context.Context) (*model.Snapshot, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    snap := &model.Snapshot{}
    for _, h := range s.holds {
        if h.Status != model.HoldPending {
            continue
        }
        snap.Holds = append(snap.Holds, h.Clone())
        if h.PaymentSessionID == "" {
            continue
        }
        for _, ps := range s.sessions {
            if ps.HoldID == h.ID {
                snap.Sessions = append(snap.Sessions, ps.Clone())
            }
        }
    }
    for _, seats := range s.ledger {
        for _, e := range seats {
            snap.Entries = append(snap.Entries, e)
        }
    }
    return snap, nil
}

// CreateHold implements service.Store.
func (s *MemoryStore) CreateHold(_ context.Context, h *model.Hold) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.holds[h.ID]; ok {
        return fmt.Errorf("hold %s: %w", h.ID, ErrConflict)
    }
    s.holds[h.ID] = h.Clone()
    return nil
}

// UpdateHoldStatus implements service.Store.
func (s *MemoryStore) UpdateHoldStatus(_ context.Context, holdID string, from, to model.HoldStatus, at time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    h, ok := s.holds[holdID]
    if !ok {
        return fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
    }
    if h.Status != from {
        return fmt.Errorf("hold %s is %s: %w", holdID, h.Status, model.ErrHoldNotPending)
    }
    h.Status = to
    h.UpdatedAt = at
    return nil
}

// ConfirmHold implements service.Store.
func (s *MemoryStore) ConfirmHold(_ context.Context, holdID string, entries []model.LedgerEntry, at time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    h, ok := s.holds[holdID]
    if !ok {
        return fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
    }
    if h.Status != model.HoldPending {
        return fmt.Errorf("hold %s is %s: %w", holdID, h.Status, model.ErrHoldNotPending)
    }
    seats := s.ledger[h.VehicleID]
    for _, e := range entries {
        if _, taken := seats[e.SeatNumber]; taken {
            return fmt.Errorf("seat %d: %w", e.SeatNumber, model.ErrSeatConflict)
        }
    }
    if seats == nil {
        seats = make(map[int]model.LedgerEntry)
        s.ledger[h.VehicleID] = seats
    }
    for _, e := range entries {
        seats[e.SeatNumber] = e
    }
    h.Status = model.HoldConfirmed
    h.UpdatedAt = at
    return nil
}

// GetHold implements service.Store.
func (s *MemoryStore) GetHold(_ context.Context, holdID string) (*model.Hold, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    h, ok := s.holds[holdID]
    if !ok {
        return nil, fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
    }
    return h.Clone(), nil
}

// CreateSession implements service.Store.
func (s *MemoryStore) CreateSession(_ context.Context, ps *model.PaymentSession) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    h, ok := s.holds[ps.HoldID]
    if !ok {
        return fmt.Errorf("hold %s: %w", ps.HoldID, model.ErrHoldNotFound)
    }
    if _, dup := s.sessions[ps.ID]; dup {
        return fmt.Errorf("session %s: %w", ps.ID, ErrConflict)
    }
    s.sessions[ps.ID] = ps.Clone()
    h.PaymentSessionID = ps.ID
    return nil
}

// ResolveSession implements service.Store.
func (s *MemoryStore) ResolveSession(_ context.Context, sessionID string, outcome model.SessionOutcome, at time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    ps, ok := s.sessions[sessionID]
    if !ok {
        return fmt.Errorf("session %s: %w", sessionID, model.ErrSessionNotFound)
    }
    if ps.Resolved() {
        return nil
    }
    ps.Outcome = outcome
    ps.ResolvedAt = &at
    return nil
}

// GetSession implements service.Store.
func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*model.PaymentSession, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    ps, ok := s.sessions[sessionID]
    if !ok {
        return nil, fmt.Errorf("session %s: %w", sessionID, model.ErrSessionNotFound)
    }
    return ps.Clone(), nil
}

// ResetVehicle implements service.Store.
func (s *MemoryStore) ResetVehicle(_ context.Context, vehicleID uint64, at time.Time) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    delete(s.ledger, vehicleID)
    for _, h := range s.holds {
        if h.VehicleID == vehicleID && (h.Status == model.HoldPending || h.Status == model.HoldConfirmed) {
            h.Status = model.HoldCancelled
            h.UpdatedAt = at
        }
    }
    return nil
}
