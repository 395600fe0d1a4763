package service

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Coordinator bridges holds and the payment gateway.  It opens checkout
// sessions for PENDING holds and turns gateway outcomes into hold
// transitions exactly once per session, however often the gateway
// repeats itself.
type Coordinator struct {
    holds   *HoldManager
    catalog VehicleCatalog
    store   Store
    gateway Gateway
    log     *zap.Logger

    mu       sync.RWMutex
    sessions map[string]*model.PaymentSession
}

// NewCoordinator wires a coordinator on top of a hold manager.
func NewCoordinator(holds *HoldManager, gateway Gateway, log *zap.Logger) *Coordinator {
    if holds == nil || gateway == nil {
        panic("service: NewCoordinator requires a hold manager and a gateway")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Coordinator{
        holds:    holds,
        catalog:  holds.catalog,
        store:    holds.store,
        gateway:  gateway,
        log:      log,
        sessions: make(map[string]*model.PaymentSession),
    }
}

// Restore indexes the sessions of a snapshot.
func (c *Coordinator) Restore(snap *model.Snapshot) {
    if snap == nil {
        return
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    for _, s := range snap.Sessions {
        c.sessions[s.ID] = s
    }
}

// adopt stores s unless a session with the same ID is already indexed and
// returns the canonical instance.
func (c *Coordinator) adopt(s *model.PaymentSession) *model.PaymentSession {
    c.mu.Lock()
    defer c.mu.Unlock()
    if cur, ok := c.sessions[s.ID]; ok {
        return cur
    }
    c.sessions[s.ID] = s
    return s
}

func (c *Coordinator) session(ctx context.Context, id string) (*model.PaymentSession, error) {
    if id == "" {
        return nil, fmt.Errorf("empty session id: %w", model.ErrSessionNotFound)
    }
    c.mu.RLock()
    s, ok := c.sessions[id]
    c.mu.RUnlock()
    if ok {
        return s, nil
    }
    stored, err := c.store.GetSession(ctx, id)
    if err != nil {
        return nil, err
    }
    return c.adopt(stored), nil
}

// OpenSession starts a checkout for a PENDING hold.  amountCents must equal
// the seat count times the vehicle's unit price.  The gateway is called
// outside the vehicle lock; the session is bound to the hold afterwards,
// provided the hold is still PENDING.  Opening a second session for the
// same hold supersedes the first.
func (c *Coordinator) OpenSession(ctx context.Context, holdID string, amountCents int64, returnURL string) (*model.PaymentSession, error) {
    h, err := c.holds.Get(ctx, holdID)
    if err != nil {
        return nil, err
    }
    if h.Status != model.HoldPending || h.ExpiredAt(c.holds.now()) {
        return nil, fmt.Errorf("hold %s is %s: %w", h.ID, h.Status, model.ErrHoldNotPending)
    }
    vehicle, err := c.catalog.GetVehicle(ctx, h.VehicleID)
    if err != nil {
        return nil, err
    }
    want := vehicle.Price(len(h.Seats))
    if amountCents != want {
        return nil, fmt.Errorf("amount %d, expected %d for %d seats: %w", amountCents, want, len(h.Seats), model.ErrAmountMismatch)
    }

    sessionID := uuid.NewString()
    gs, err := c.gateway.OpenSession(ctx, GatewayRequest{
        SessionID:   sessionID,
        HoldID:      h.ID,
        AmountCents: amountCents,
        Description: fmt.Sprintf("%s (%s) seats %v", vehicle.Name, vehicle.Number, h.SeatNumbers()),
        ReturnURL:   returnURL,
    })
    if err != nil {
        return nil, fmt.Errorf("open gateway session: %w", err)
    }

    var out *model.PaymentSession
    err = c.holds.withHold(ctx, holdID, func(h *model.Hold, now time.Time) error {
        if h.Status != model.HoldPending || h.ExpiredAt(now) {
            return fmt.Errorf("hold %s is %s: %w", h.ID, h.Status, model.ErrHoldNotPending)
        }
        s := &model.PaymentSession{
            ID:          sessionID,
            HoldID:      h.ID,
            AmountCents: amountCents,
            ExternalRef: gs.ExternalRef,
            RedirectURL: gs.RedirectURL,
            Outcome:     model.OutcomeOpen,
            CreatedAt:   now,
        }
        if err := c.store.CreateSession(ctx, s); err != nil {
            return fmt.Errorf("persist session: %w", err)
        }
        previous := h.PaymentSessionID
        h.PaymentSessionID = s.ID
        out = c.adopt(s).Clone()
        if previous != "" {
            c.log.Info("payment session superseded",
                zap.String("hold_id", h.ID),
                zap.String("previous_session_id", previous),
                zap.String("session_id", s.ID),
            )
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    c.log.Info("payment session opened",
        zap.String("session_id", out.ID),
        zap.String("hold_id", out.HoldID),
        zap.Int64("amount_cents", out.AmountCents),
    )
    return out, nil
}

// Session returns a copy of a payment session.
func (c *Coordinator) Session(ctx context.Context, id string) (*model.PaymentSession, error) {
    s, err := c.session(ctx, id)
    if err != nil {
        return nil, err
    }
    var out *model.PaymentSession
    err = c.holds.withHold(ctx, s.HoldID, func(*model.Hold, time.Time) error {
        out = s.Clone()
        return nil
    })
    return out, err
}

// HandleOutcome applies a gateway outcome to the session's hold and
// returns the hold's resulting status.  The first outcome recorded on a
// session wins; repeats and contradictions are no-ops.  SUCCEEDED confirms
// the hold; if the hold already left PENDING the payment is logged for
// refund and the hold keeps its state.  FAILED cancels the hold unless a
// newer session has superseded this one.
func (c *Coordinator) HandleOutcome(ctx context.Context, sessionID string, outcome model.SessionOutcome) (model.HoldStatus, error) {
    if outcome != model.OutcomeSucceeded && outcome != model.OutcomeFailed {
        return "", fmt.Errorf("outcome %q: %w", outcome, model.ErrInvalidRequest)
    }
    s, err := c.session(ctx, sessionID)
    if err != nil {
        return "", err
    }
    var (
        status model.HoldStatus
        ev     *model.BookingEvent
    )
    err = c.holds.withHold(ctx, s.HoldID, func(h *model.Hold, now time.Time) error {
        if s.Resolved() {
            status = h.Status
            c.log.Info("duplicate payment outcome ignored",
                zap.String("session_id", s.ID),
                zap.String("recorded", string(s.Outcome)),
                zap.String("received", string(outcome)),
                zap.String("status", string(h.Status)),
            )
            return nil
        }
        switch outcome {
        case model.OutcomeSucceeded:
            e, err := c.holds.confirmLocked(ctx, h, now)
            switch {
            case err == nil:
                if e != nil {
                    e.AmountCents = s.AmountCents
                }
                ev = e
            case IsBenign(err):
                c.log.Warn("payment succeeded for hold that is no longer pending; refund required",
                    zap.String("session_id", s.ID),
                    zap.String("hold_id", h.ID),
                    zap.String("status", string(h.Status)),
                    zap.Int64("amount_cents", s.AmountCents),
                )
            default:
                return err
            }
        case model.OutcomeFailed:
            if h.PaymentSessionID != s.ID {
                c.log.Info("failure of superseded payment session ignored",
                    zap.String("session_id", s.ID),
                    zap.String("hold_id", h.ID),
                    zap.String("current_session_id", h.PaymentSessionID),
                )
                break
            }
            e, err := c.holds.cancelLocked(ctx, h, now)
            if err != nil && !IsBenign(err) {
                return err
            }
            ev = e
        }
        if err := c.store.ResolveSession(ctx, s.ID, outcome, now); err != nil {
            return fmt.Errorf("persist outcome: %w", err)
        }
        resolved := now
        s.Outcome = outcome
        s.ResolvedAt = &resolved
        status = h.Status
        return nil
    })
    if ev != nil {
        c.holds.emit(ctx, *ev)
    }
    if err != nil {
        return "", err
    }
    c.log.Info("payment outcome handled",
        zap.String("session_id", s.ID),
        zap.String("hold_id", s.HoldID),
        zap.String("outcome", string(outcome)),
        zap.String("status", string(status)),
    )
    return status, nil
}
