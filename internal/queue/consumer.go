package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// AuditConsumer appends every booking event from a queue to a log file.
type AuditConsumer struct {
    URL   string
    Queue string
    Path  string
    Log   *zap.Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial
// failures and dropped connections are retried with exponential backoff
// capped at 30s.
func (c *AuditConsumer) Run(ctx context.Context) {
    log := c.Log
    if log == nil {
        log = zap.NewNop()
    }
    backoff := time.Second
    for ctx.Err() == nil {
        conn, err := dialWithTimeout(c.URL)
        if err != nil {
            log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return
        }
        log.Warn("audit consumer: consume loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        return fmt.Errorf("set qos: %w", err)
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.handle(d.Body); err != nil {
            if c.Log != nil {
                c.Log.Warn("audit consumer: handle message failed", zap.Error(err))
            }
            _ = d.Nack(false, false) // reject without requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func (c *AuditConsumer) handle(body []byte) error {
    var ev model.BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    return AppendAuditLine(c.Path, ev)
}

// AppendAuditLine writes the formatted event to path, creating parent
// directories as needed.
func AppendAuditLine(path string, ev model.BookingEvent) error {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
