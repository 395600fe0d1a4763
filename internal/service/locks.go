package service

import "sync"

// vehicleLocks hands out one mutex per vehicle.  Operations on different
// vehicles never contend; operations on the same vehicle are serialised.
type vehicleLocks struct {
    mu    sync.Mutex
    locks map[uint64]*sync.Mutex
}

func newVehicleLocks() *vehicleLocks {
    return &vehicleLocks{locks: make(map[uint64]*sync.Mutex)}
}

// lock acquires the vehicle's mutex and returns the matching unlock func.
func (v *vehicleLocks) lock(vehicleID uint64) func() {
    v.mu.Lock()
    m, ok := v.locks[vehicleID]
    if !ok {
        m = &sync.Mutex{}
        v.locks[vehicleID] = m
    }
    v.mu.Unlock()
    m.Lock()
    return m.Unlock
}
