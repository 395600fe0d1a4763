package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// MySQLStore is the durable store backed by MySQL.  Each method that
// writes more than one row runs inside a single transaction.
type MySQLStore struct {
    db       *sql.DB
    Vehicles *VehicleRepo
    Holds    *HoldRepo
    Ledger   *LedgerRepo
    Sessions *SessionRepo
}

// NewMySQLStore wires the repositories over one database handle.
func NewMySQLStore(db *sql.DB) *MySQLStore {
    if db == nil {
        panic("nil database passed to NewMySQLStore")
    }
    return &MySQLStore{
        db:       db,
        Vehicles: NewVehicleRepo(db),
        Holds:    NewHoldRepo(db),
        Ledger:   NewLedgerRepo(db),
        Sessions: NewSessionRepo(db),
    }
}

// inTx runs fn in a transaction, committing when fn returns nil.
func (s *MySQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(tx); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetVehicle implements service.VehicleCatalog.
func (s *MySQLStore) GetVehicle(ctx context.Context, id uint64) (*model.Vehicle, error) {
    return s.Vehicles.GetVehicle(ctx, id)
}

// ListVehicles implements service.VehicleCatalog.
func (s *MySQLStore) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
    return s.Vehicles.ListVehicles(ctx)
}

// LoadSnapshot implements service.Store.
func (s *MySQLStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
    holds, err := s.Holds.ListPending(ctx)
    if err != nil {
        return nil, fmt.Errorf("load pending holds: %w", err)
    }
    entries, err := s.Ledger.ListAll(ctx)
    if err != nil {
        return nil, fmt.Errorf("load ledger: %w", err)
    }
    sessions, err := s.Sessions.ListForPendingHolds(ctx)
    if err != nil {
        return nil, fmt.Errorf("load sessions: %w", err)
    }
    return &model.Snapshot{Holds: holds, Entries: entries, Sessions: sessions}, nil
}

// CreateHold implements service.Store.
func (s *MySQLStore) CreateHold(ctx context.Context, h *model.Hold) error {
    return s.inTx(ctx, func(tx *sql.Tx) error {
        return s.Holds.CreateTx(ctx, tx, h)
    })
}

// UpdateHoldStatus implements service.Store.
func (s *MySQLStore) UpdateHoldStatus(ctx context.Context, holdID string, from, to model.HoldStatus, at time.Time) error {
    return s.inTx(ctx, func(tx *sql.Tx) error {
        return s.Holds.UpdateStatusTx(ctx, tx, holdID, from, to, at)
    })
}

// ConfirmHold implements service.Store.  The status change and the ledger
// rows commit together or not at all.
func (s *MySQLStore) ConfirmHold(ctx context.Context, holdID string, entries []model.LedgerEntry, at time.Time) error {
    return s.inTx(ctx, func(tx *sql.Tx) error {
        if err := s.Holds.UpdateStatusTx(ctx, tx, holdID, model.HoldPending, model.HoldConfirmed, at); err != nil {
            return err
        }
        return s.Ledger.InsertTx(ctx, tx, entries)
    })
}

// GetHold implements service.Store.
func (s *MySQLStore) GetHold(ctx context.Context, holdID string) (*model.Hold, error) {
    return s.Holds.GetByID(ctx, holdID)
}

// CreateSession implements service.Store.
func (s *MySQLStore) CreateSession(ctx context.Context, ps *model.PaymentSession) error {
    return s.inTx(ctx, func(tx *sql.Tx) error {
        if err := s.Sessions.CreateTx(ctx, tx, ps); err != nil {
            return err
        }
        return s.Holds.SetSessionTx(ctx, tx, ps.HoldID, ps.ID)
    })
}

// ResolveSession implements service.Store.
func (s *MySQLStore) ResolveSession(ctx context.Context, sessionID string, outcome model.SessionOutcome, at time.Time) error {
    return s.Sessions.Resolve(ctx, sessionID, outcome, at)
}

// GetSession implements service.Store.
func (s *MySQLStore) GetSession(ctx context.Context, sessionID string) (*model.PaymentSession, error) {
    return s.Sessions.GetByID(ctx, sessionID)
}

// ResetVehicle implements service.Store.
func (s *MySQLStore) ResetVehicle(ctx context.Context, vehicleID uint64, at time.Time) error {
    return s.inTx(ctx, func(tx *sql.Tx) error {
        if _, err := s.Ledger.DeleteByVehicleTx(ctx, tx, vehicleID); err != nil {
            return err
        }
        _, err := s.Holds.CancelActiveByVehicleTx(ctx, tx, vehicleID, at)
        return err
    })
}
