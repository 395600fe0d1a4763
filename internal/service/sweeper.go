package service

import (
    "context"
    "time"

    "go.uber.org/zap"
)

type holdExpirer interface {
    ExpiredPending(now time.Time) []string
    Expire(ctx context.Context, holdID string) error
}

// Sweeper periodically expires PENDING holds whose TTL has elapsed.
type Sweeper struct {
    holds    holdExpirer
    interval time.Duration
    now      Clock
    log      *zap.Logger
}

// NewSweeper returns a sweeper that ticks every interval.
func NewSweeper(holds holdExpirer, interval time.Duration, log *zap.Logger) *Sweeper {
    if interval <= 0 {
        interval = 5 * time.Second
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Sweeper{
        holds:    holds,
        interval: interval,
        now:      systemClock,
        log:      log,
    }
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()

    s.log.Info("sweeper started", zap.Duration("interval", s.interval))

    for {
        select {
        case <-ctx.Done():
            s.log.Info("sweeper stopped")
            return
        case <-ticker.C:
            s.Sweep(ctx)
        }
    }
}

// Sweep runs one pass and returns how many holds were expired.  A failure
// on one hold is logged and does not stop the pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
    expired := 0
    for _, id := range s.holds.ExpiredPending(s.now()) {
        if ctx.Err() != nil {
            break
        }
        err := s.holds.Expire(ctx, id)
        switch {
        case err == nil:
            expired++
        case IsBenign(err):
            // confirmed or cancelled since the listing
        default:
            s.log.Error("failed to expire hold",
                zap.String("hold_id", id),
                zap.Error(err),
            )
        }
    }
    if expired > 0 {
        s.log.Info("expired holds swept", zap.Int("count", expired))
    }
    return expired
}
