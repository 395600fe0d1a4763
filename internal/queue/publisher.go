package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

const (
    publishBuffer  = 256
    dialTimeout    = 5 * time.Second
    publishTimeout = 5 * time.Second
)

var (
    // ErrPublishBacklog is returned when the outbound buffer is full.
    ErrPublishBacklog = errors.New("rabbitmq: publish buffer full")
    // ErrPublisherClosed is returned by Publish after Close.
    ErrPublisherClosed = errors.New("rabbitmq: publisher closed")
)

type dialFunc func(url string) (*amqp.Connection, error)

func dialWithTimeout(url string) (*amqp.Connection, error) {
    return amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
}

// Publisher sends booking events to a durable queue on the default
// exchange.  Publish only enqueues; a single goroutine owns the broker
// connection, opens it lazily and re-dials after the broker drops it.
type Publisher struct {
    url   string
    queue string
    log   *zap.Logger
    dial  dialFunc

    events chan model.BookingEvent
    stop   chan struct{}
    done   chan struct{}
    once   sync.Once

    // conn and ch belong to the run goroutine until done is closed.
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a publisher for queue.  No connection is made until
// the first event is sent.
func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
    return newPublisher(url, queue, log, publishBuffer, dialWithTimeout)
}

func newPublisher(url, queue string, log *zap.Logger, buffer int, dial dialFunc) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    p := &Publisher{
        url:    url,
        queue:  queue,
        log:    log,
        dial:   dial,
        events: make(chan model.BookingEvent, buffer),
        stop:   make(chan struct{}),
        done:   make(chan struct{}),
    }
    go p.run()
    return p
}

// Publish queues ev for delivery and never waits on the broker.  Delivery
// failures are logged by the sender.
func (p *Publisher) Publish(_ context.Context, ev model.BookingEvent) error {
    select {
    case <-p.stop:
        return ErrPublisherClosed
    default:
    }
    select {
    case p.events <- ev:
        return nil
    default:
        return fmt.Errorf("event %s: %w", ev.Type, ErrPublishBacklog)
    }
}

func (p *Publisher) run() {
    defer close(p.done)
    for {
        select {
        case ev := <-p.events:
            p.deliver(ev)
        case <-p.stop:
            p.drain()
            return
        }
    }
}

// drain sends what is still buffered and gives up at the first failure.
func (p *Publisher) drain() {
    for {
        select {
        case ev := <-p.events:
            if err := p.send(context.Background(), ev); err != nil {
                p.log.Warn("booking events dropped on shutdown",
                    zap.Int("dropped", len(p.events)+1),
                    zap.Error(err),
                )
                return
            }
        default:
            return
        }
    }
}

func (p *Publisher) deliver(ev model.BookingEvent) {
    if err := p.send(context.Background(), ev); err != nil {
        p.log.Warn("booking event not delivered",
            zap.String("type", ev.Type),
            zap.String("hold_id", ev.HoldID),
            zap.Uint64("vehicle_id", ev.VehicleID),
            zap.Error(err),
        )
    }
}

// channel returns an open channel, dialling when needed.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    if p.conn == nil || p.conn.IsClosed() {
        conn, err := p.dial(p.url)
        if err != nil {
            return nil, fmt.Errorf("rabbitmq: dial: %w", err)
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
    }
    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        return nil, fmt.Errorf("rabbitmq: queue declare: %w", err)
    }
    p.ch = ch
    return ch, nil
}

// send marshals ev and publishes it as a persistent message.
func (p *Publisher) send(ctx context.Context, ev model.BookingEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("rabbitmq: marshal event: %w", err)
    }
    ch, err := p.channel()
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Type:         ev.Type,
        Body:         body,
    }
    ctx, cancel := context.WithTimeout(ctx, publishTimeout)
    defer cancel()
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        _ = ch.Close()
        p.ch = nil
        return fmt.Errorf("rabbitmq: publish: %w", err)
    }
    p.log.Debug("booking event published", zap.String("type", ev.Type), zap.String("queue", p.queue))
    return nil
}

// Close flushes buffered events, stops the sender and releases the
// connection.  It is safe to call more than once.
func (p *Publisher) Close() error {
    p.once.Do(func() { close(p.stop) })
    <-p.done
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        err := p.conn.Close()
        p.conn = nil
        return err
    }
    return nil
}
