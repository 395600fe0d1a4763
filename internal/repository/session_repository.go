package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// SessionRepo provides data access to payment_sessions.  A session row is
// written once when opened and updated once when its first outcome
// arrives; the amount never changes.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// CreateTx inserts an OPEN session.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.PaymentSession) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO payment_sessions (id, hold_id, amount_cents, external_ref, redirect_url, outcome, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        s.ID, s.HoldID, s.AmountCents, s.ExternalRef, s.RedirectURL, string(s.Outcome), s.CreatedAt.UTC(),
    )
    if isDuplicate(err) {
        return fmt.Errorf("session %s: %w", s.ID, ErrConflict)
    }
    return err
}

// Resolve records the outcome of an OPEN session.  Sessions that already
// carry an outcome are left unchanged; a missing session yields
// model.ErrSessionNotFound.
func (r *SessionRepo) Resolve(ctx context.Context, sessionID string, outcome model.SessionOutcome, at time.Time) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE payment_sessions SET outcome = ?, resolved_at = ? WHERE id = ? AND outcome = ?`,
        string(outcome), at.UTC(), sessionID, string(model.OutcomeOpen),
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
    if _, err := r.GetByID(ctx, sessionID); err != nil {
        return err
    }
    return nil
}

const sessionColumns = `id, hold_id, amount_cents, external_ref, redirect_url, outcome, created_at, resolved_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*model.PaymentSession, error) {
    var (
        s        model.PaymentSession
        outcome  string
        resolved sql.NullTime
    )
    if err := row.Scan(&s.ID, &s.HoldID, &s.AmountCents, &s.ExternalRef, &s.RedirectURL, &outcome, &s.CreatedAt, &resolved); err != nil {
        return nil, err
    }
    s.Outcome = model.SessionOutcome(outcome)
    if resolved.Valid {
        t := resolved.Time
        s.ResolvedAt = &t
    }
    return &s, nil
}

// GetByID loads one session.
func (r *SessionRepo) GetByID(ctx context.Context, sessionID string) (*model.PaymentSession, error) {
    s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM payment_sessions WHERE id = ?`, sessionID))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, fmt.Errorf("session %s: %w", sessionID, model.ErrSessionNotFound)
    }
    if err != nil {
        return nil, err
    }
    return s, nil
}

// ListForPendingHolds returns the sessions of every PENDING hold.
func (r *SessionRepo) ListForPendingHolds(ctx context.Context) ([]*model.PaymentSession, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT ps.id, ps.hold_id, ps.amount_cents, ps.external_ref, ps.redirect_url, ps.outcome, ps.created_at, ps.resolved_at
         FROM payment_sessions ps JOIN holds h ON h.id = ps.hold_id
         WHERE h.status = ? ORDER BY ps.created_at`,
        string(model.HoldPending),
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []*model.PaymentSession
    for rows.Next() {
        s, err := scanSession(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}
