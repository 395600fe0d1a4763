package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// HoldRepo provides data access to the holds and hold_seats tables.  A
// hold row carries the state machine status; its seats, with passenger
// details, live in hold_seats ordered by position.  All timestamps are
// stored in UTC.
type HoldRepo struct {
    db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// CreateTx inserts the hold row and one hold_seats row per seat.  The
// caller owns the transaction.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO holds (id, vehicle_id, status, owner_id, created_at, expires_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
        h.ID, h.VehicleID, string(h.Status), h.OwnerID, h.CreatedAt.UTC(), h.ExpiresAt.UTC(), h.UpdatedAt.UTC(),
    )
    if isDuplicate(err) {
        return fmt.Errorf("hold %s: %w", h.ID, ErrConflict)
    }
    if err != nil {
        return err
    }
    if len(h.Seats) == 0 {
        return nil
    }
    query := `INSERT INTO hold_seats (hold_id, position, seat_number, passenger_name, passenger_age, passenger_gender) VALUES `
    args := make([]interface{}, 0, len(h.Seats)*6)
    for i, s := range h.Seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        args = append(args, h.ID, i, s.SeatNumber, s.PassengerName, s.PassengerAge, s.PassengerGender)
    }
    _, err = tx.ExecContext(ctx, query, args...)
    return err
}

// UpdateStatusTx moves a hold from one status to another.  When no row
// has the expected status it reports model.ErrHoldNotFound or
// model.ErrHoldNotPending depending on whether the hold exists.
func (r *HoldRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, holdID string, from, to model.HoldStatus, at time.Time) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE holds SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
        string(to), at.UTC(), holdID, string(from),
    )
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    var status string
    err = tx.QueryRowContext(ctx, `SELECT status FROM holds WHERE id = ?`, holdID).Scan(&status)
    if errors.Is(err, sql.ErrNoRows) {
        return fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
    }
    if err != nil {
        return err
    }
    return fmt.Errorf("hold %s is %s: %w", holdID, status, model.ErrHoldNotPending)
}

// CancelActiveByVehicleTx cancels every PENDING and CONFIRMED hold of a
// vehicle and returns how many rows changed.
func (r *HoldRepo) CancelActiveByVehicleTx(ctx context.Context, tx *sql.Tx, vehicleID uint64, at time.Time) (int64, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE holds SET status = ?, updated_at = ? WHERE vehicle_id = ? AND status IN (?, ?)`,
        string(model.HoldCancelled), at.UTC(), vehicleID, string(model.HoldPending), string(model.HoldConfirmed),
    )
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// SetSessionTx records the current payment session of a hold.
func (r *HoldRepo) SetSessionTx(ctx context.Context, tx *sql.Tx, holdID, sessionID string) error {
    res, err := tx.ExecContext(ctx, `UPDATE holds SET payment_session_id = ? WHERE id = ?`, sessionID, holdID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err != nil {
        return err
    } else if n == 0 {
        return fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
    }
    return nil
}

const holdColumns = `id, vehicle_id, status, owner_id, payment_session_id, created_at, expires_at, updated_at`

func scanHold(row interface{ Scan(...interface{}) error }) (*model.Hold, error) {
    var (
        h       model.Hold
        status  string
        session sql.NullString
    )
    if err := row.Scan(&h.ID, &h.VehicleID, &status, &h.OwnerID, &session, &h.CreatedAt, &h.ExpiresAt, &h.UpdatedAt); err != nil {
        return nil, err
    }
    h.Status = model.HoldStatus(status)
    if session.Valid {
        h.PaymentSessionID = session.String
    }
    return &h, nil
}

// GetByID loads a hold and its seats.
func (r *HoldRepo) GetByID(ctx context.Context, holdID string) (*model.Hold, error) {
    h, err := scanHold(r.db.QueryRowContext(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = ?`, holdID))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
    }
    if err != nil {
        return nil, err
    }
    if err := r.attachSeats(ctx, r.db, []*model.Hold{h}); err != nil {
        return nil, err
    }
    return h, nil
}

// ListPending returns every PENDING hold with its seats.
func (r *HoldRepo) ListPending(ctx context.Context) ([]*model.Hold, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+holdColumns+` FROM holds WHERE status = ? ORDER BY created_at`,
        string(model.HoldPending),
    )
    if err != nil {
        return nil, err
    }
    var holds []*model.Hold
    for rows.Next() {
        h, scanErr := scanHold(rows)
        if scanErr != nil {
            rows.Close()
            return nil, scanErr
        }
        holds = append(holds, h)
    }
    if err = rows.Close(); err != nil {
        return nil, err
    }
    if err := r.attachSeats(ctx, r.db, holds); err != nil {
        return nil, err
    }
    return holds, nil
}

// attachSeats loads hold_seats for holds in one query.
func (r *HoldRepo) attachSeats(ctx context.Context, q queryer, holds []*model.Hold) error {
    if len(holds) == 0 {
        return nil
    }
    byID := make(map[string]*model.Hold, len(holds))
    placeholders := make([]string, 0, len(holds))
    args := make([]interface{}, 0, len(holds))
    for _, h := range holds {
        byID[h.ID] = h
        placeholders = append(placeholders, "?")
        args = append(args, h.ID)
    }
    rows, err := q.QueryContext(ctx,
        `SELECT hold_id, seat_number, passenger_name, passenger_age, passenger_gender
         FROM hold_seats WHERE hold_id IN (`+strings.Join(placeholders, ",")+`) ORDER BY hold_id, position`,
        args...,
    )
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var (
            holdID string
            s      model.SeatAssignment
        )
        if err := rows.Scan(&holdID, &s.SeatNumber, &s.PassengerName, &s.PassengerAge, &s.PassengerGender); err != nil {
            return err
        }
        if h, ok := byID[holdID]; ok {
            h.Seats = append(h.Seats, s)
        }
    }
    return rows.Err()
}
