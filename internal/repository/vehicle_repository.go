package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// VehicleRepo reads the vehicles table.  Vehicles are maintained outside
// the booking service, so the repository exposes no write methods.
type VehicleRepo struct {
    db *sql.DB
}

// NewVehicleRepo returns a new VehicleRepo bound to the provided database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// GetVehicle fetches one vehicle by primary key.  model.ErrVehicleNotFound
// is returned when no row matches.
func (r *VehicleRepo) GetVehicle(ctx context.Context, id uint64) (*model.Vehicle, error) {
    const q = `SELECT id, number, name, seats, price_cents FROM vehicles WHERE id = ?`
    var v model.Vehicle
    err := r.db.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.Number, &v.Name, &v.Seats, &v.PriceCents)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, fmt.Errorf("vehicle %d: %w", id, model.ErrVehicleNotFound)
    }
    if err != nil {
        return nil, err
    }
    return &v, nil
}

// ListVehicles returns every vehicle ordered by ID.
func (r *VehicleRepo) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT id, number, name, seats, price_cents FROM vehicles ORDER BY id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Vehicle
    for rows.Next() {
        var v model.Vehicle
        if err := rows.Scan(&v.ID, &v.Number, &v.Name, &v.Seats, &v.PriceCents); err != nil {
            return nil, err
        }
        out = append(out, v)
    }
    return out, rows.Err()
}
