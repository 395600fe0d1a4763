// Package cache keeps short-lived copies of booked seat lists in Redis so
// availability reads do not queue behind vehicle locks.  The hold manager
// invalidates a vehicle's entry whenever its booked seats change.
package cache

import (
    "context"
    "encoding/json"
    "errors"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// BookedSource supplies the authoritative booked seats of a vehicle.
type BookedSource interface {
    BookedSeats(ctx context.Context, vehicleID uint64) ([]int, error)
}

// Availability is a read-through cache of booked seat numbers.  A nil
// Redis client disables caching and every read goes to the source.
type Availability struct {
    rdb    *redis.Client
    ttl    time.Duration
    source BookedSource
    log    *zap.Logger
}

// NewAvailability builds the cache.  source may be attached later with
// SetSource when it is constructed after the cache.
func NewAvailability(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Availability {
    if log == nil {
        log = zap.NewNop()
    }
    return &Availability{rdb: rdb, ttl: ttl, log: log}
}

// SetSource attaches the authoritative source.
func (a *Availability) SetSource(s BookedSource) { a.source = s }

func genKey(vehicleID uint64) string {
    return "availability:" + strconv.FormatUint(vehicleID, 10) + ":gen"
}

func key(vehicleID uint64, gen int64) string {
    return "availability:" + strconv.FormatUint(vehicleID, 10) + ":" + strconv.FormatInt(gen, 10)
}

// Booked returns the booked seats of a vehicle, from Redis when present.
// Entries are keyed by the vehicle's generation, read before the source,
// so a fill that races with Invalidate lands on a retired key.
func (a *Availability) Booked(ctx context.Context, vehicleID uint64) ([]int, error) {
    if a.source == nil {
        return nil, errors.New("cache: availability source not set")
    }
    if a.rdb == nil {
        return a.source.BookedSeats(ctx, vehicleID)
    }
    gen, err := a.rdb.Get(ctx, genKey(vehicleID)).Int64()
    if err != nil && !errors.Is(err, redis.Nil) {
        a.log.Warn("availability generation read failed", zap.Uint64("vehicle_id", vehicleID), zap.Error(err))
        return a.source.BookedSeats(ctx, vehicleID)
    }
    k := key(vehicleID, gen)
    raw, err := a.rdb.Get(ctx, k).Bytes()
    if err == nil {
        var seats []int
        if jsonErr := json.Unmarshal(raw, &seats); jsonErr == nil {
            return seats, nil
        }
    } else if !errors.Is(err, redis.Nil) {
        a.log.Warn("availability cache read failed", zap.String("key", k), zap.Error(err))
    }

    seats, err := a.source.BookedSeats(ctx, vehicleID)
    if err != nil {
        return nil, err
    }
    if raw, err := json.Marshal(seats); err == nil {
        if err := a.rdb.Set(ctx, k, raw, a.ttl).Err(); err != nil {
            a.log.Warn("availability cache write failed", zap.String("key", k), zap.Error(err))
        }
    }
    return seats, nil
}

// Invalidate retires the cached entry of a vehicle by bumping its
// generation.
func (a *Availability) Invalidate(ctx context.Context, vehicleID uint64) error {
    if a.rdb == nil {
        return nil
    }
    return a.rdb.Incr(ctx, genKey(vehicleID)).Err()
}
