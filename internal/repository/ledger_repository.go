package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// LedgerRepo provides data access to seat_ledger.  The table's primary key
// (vehicle_id, seat_number) guarantees at most one confirmed booking per
// seat even if two writers race past the in-memory checks.
type LedgerRepo struct {
    db *sql.DB
}

// NewLedgerRepo returns a new LedgerRepo bound to the provided database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// InsertTx inserts entries in a single statement.  A duplicate seat is
// reported as model.ErrSeatConflict; the caller rolls back.
func (r *LedgerRepo) InsertTx(ctx context.Context, tx *sql.Tx, entries []model.LedgerEntry) error {
    if len(entries) == 0 {
        return nil
    }
    query := `INSERT INTO seat_ledger (vehicle_id, seat_number, hold_id, passenger_name, passenger_age, passenger_gender, created_at) VALUES `
    args := make([]interface{}, 0, len(entries)*7)
    for i, e := range entries {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?)"
        args = append(args, e.VehicleID, e.SeatNumber, e.HoldID, e.PassengerName, e.PassengerAge, e.PassengerGender, e.CreatedAt.UTC())
    }
    _, err := tx.ExecContext(ctx, query, args...)
    if isDuplicate(err) {
        return fmt.Errorf("hold %s: %w", entries[0].HoldID, model.ErrSeatConflict)
    }
    return err
}

// DeleteByVehicleTx removes every entry of a vehicle and returns the
// number of rows deleted.
func (r *LedgerRepo) DeleteByVehicleTx(ctx context.Context, tx *sql.Tx, vehicleID uint64) (int64, error) {
    res, err := tx.ExecContext(ctx, `DELETE FROM seat_ledger WHERE vehicle_id = ?`, vehicleID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ListAll returns every ledger entry ordered by vehicle and seat.
func (r *LedgerRepo) ListAll(ctx context.Context) ([]model.LedgerEntry, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT vehicle_id, seat_number, hold_id, passenger_name, passenger_age, passenger_gender, created_at
         FROM seat_ledger ORDER BY vehicle_id, seat_number`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.LedgerEntry
    for rows.Next() {
        var e model.LedgerEntry
        if err := rows.Scan(&e.VehicleID, &e.SeatNumber, &e.HoldID, &e.PassengerName, &e.PassengerAge, &e.PassengerGender, &e.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, e)
    }
    return out, rows.Err()
}
