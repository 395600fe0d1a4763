package service

import (
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// coverage records which PENDING hold currently reserves a seat.
type coverage struct {
    holdID    string
    expiresAt time.Time
}

// partition is the ledger state of one vehicle.  It is only read or
// written by a goroutine holding that vehicle's lock.
type partition struct {
    booked  map[int]model.LedgerEntry
    covered map[int]coverage
}

// Ledger is the authoritative record of which seats are booked on each
// vehicle, plus the coverage map of seats reserved by PENDING holds.  It
// performs no I/O and keeps no timers.  Callers must hold the vehicle lock
// for every method that takes a vehicle ID; the ledger itself only
// guards the partition map.
type Ledger struct {
    mu    sync.Mutex
    parts map[uint64]*partition
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
    return &Ledger{parts: make(map[uint64]*partition)}
}

func (l *Ledger) part(vehicleID uint64) *partition {
    l.mu.Lock()
    defer l.mu.Unlock()
    p, ok := l.parts[vehicleID]
    if !ok {
        p = &partition{booked: make(map[int]model.LedgerEntry), covered: make(map[int]coverage)}
        l.parts[vehicleID] = p
    }
    return p
}

// IsAvailable reports whether every seat is neither booked nor covered by
// a PENDING hold whose TTL is still running at now.
func (l *Ledger) IsAvailable(vehicleID uint64, seats []int, now time.Time) bool {
    p := l.part(vehicleID)
    for _, n := range seats {
        if _, ok := p.booked[n]; ok {
            return false
        }
        if c, ok := p.covered[n]; ok && now.Before(c.expiresAt) {
            return false
        }
    }
    return true
}

// Coverers returns the distinct hold IDs covering any of seats, whether
// or not their TTL has elapsed.
func (l *Ledger) Coverers(vehicleID uint64, seats []int) []string {
    p := l.part(vehicleID)
    seen := make(map[string]struct{})
    var out []string
    for _, n := range seats {
        c, ok := p.covered[n]
        if !ok {
            continue
        }
        if _, dup := seen[c.holdID]; dup {
            continue
        }
        seen[c.holdID] = struct{}{}
        out = append(out, c.holdID)
    }
    return out
}

// Reserve marks seats as covered by holdID until expiresAt.
func (l *Ledger) Reserve(vehicleID uint64, holdID string, seats []int, expiresAt time.Time) {
    p := l.part(vehicleID)
    for _, n := range seats {
        p.covered[n] = coverage{holdID: holdID, expiresAt: expiresAt}
    }
}

// Unreserve drops the coverage of seats that is owned by holdID.  Seats
// covered by a different hold are left untouched.
func (l *Ledger) Unreserve(vehicleID uint64, holdID string, seats []int) {
    p := l.part(vehicleID)
    for _, n := range seats {
        if c, ok := p.covered[n]; ok && c.holdID == holdID {
            delete(p.covered, n)
        }
    }
}

// Conflict returns model.ErrSeatConflict if any seat already has an entry.
func (l *Ledger) Conflict(vehicleID uint64, seats []int) error {
    p := l.part(vehicleID)
    for _, n := range seats {
        if prev, ok := p.booked[n]; ok {
            return fmt.Errorf("seat %d already booked by hold %s: %w", n, prev.HoldID, model.ErrSeatConflict)
        }
    }
    return nil
}

// Commit inserts one entry per seat.  If any seat already has an entry
// nothing is inserted and model.ErrSeatConflict is returned.  Successful
// commits also drop the committing hold's coverage.
func (l *Ledger) Commit(vehicleID uint64, entries []model.LedgerEntry) error {
    seats := make([]int, 0, len(entries))
    for _, e := range entries {
        seats = append(seats, e.SeatNumber)
    }
    if err := l.Conflict(vehicleID, seats); err != nil {
        return err
    }
    p := l.part(vehicleID)
    for _, e := range entries {
        p.booked[e.SeatNumber] = e
        if c, ok := p.covered[e.SeatNumber]; ok && c.holdID == e.HoldID {
            delete(p.covered, e.SeatNumber)
        }
    }
    return nil
}

// Release removes the entries for seats and returns how many existed.
func (l *Ledger) Release(vehicleID uint64, seats []int) int {
    p := l.part(vehicleID)
    n := 0
    for _, s := range seats {
        if _, ok := p.booked[s]; ok {
            delete(p.booked, s)
            n++
        }
    }
    return n
}

// Booked returns the booked seat numbers of a vehicle in ascending order.
func (l *Ledger) Booked(vehicleID uint64) []int {
    p := l.part(vehicleID)
    out := make([]int, 0, len(p.booked))
    for n := range p.booked {
        out = append(out, n)
    }
    sort.Ints(out)
    return out
}

// Held returns the seat numbers covered by PENDING holds that have not
// expired at now, in ascending order.
func (l *Ledger) Held(vehicleID uint64, now time.Time) []int {
    p := l.part(vehicleID)
    out := make([]int, 0, len(p.covered))
    for n, c := range p.covered {
        if now.Before(c.expiresAt) {
            out = append(out, n)
        }
    }
    sort.Ints(out)
    return out
}

// Entries returns the ledger entries of a vehicle ordered by seat number.
func (l *Ledger) Entries(vehicleID uint64) []model.LedgerEntry {
    p := l.part(vehicleID)
    out := make([]model.LedgerEntry, 0, len(p.booked))
    for _, e := range p.booked {
        out = append(out, e)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
    return out
}
