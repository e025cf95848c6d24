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
    "github.com/rs/zerolog"
)

// AuditFile is the file, relative to the log directory, that receives one
// line per seat event.
const AuditFile = "seat-audit.log"

// StartAuditConsumer connects to RabbitMQ, declares the seat.booked and
// seat.cancelled queues (durable), and appends every message to
// dir/seat-audit.log in a single-line, human-friendly format.  It runs a
// reconnect loop with exponential backoff and returns only when ctx is
// cancelled.  Malformed messages are logged and rejected without requeue so
// the loop never spins on them.
func StartAuditConsumer(ctx context.Context, url, dir string, logger zerolog.Logger) error {
    if url == "" {
        url = DefaultURL
    }
    logger = logger.With().Str("component", "audit-consumer").Logger()

    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, dir, logger)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warn().Err(err).Msg("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string, logger zerolog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warn().Err(err).Msg("set QoS failed")
    }

    // done stops this loop's forwarders when it returns, whatever the reason.
    done := make(chan struct{})
    defer close(done)

    deliveries := make(chan amqp.Delivery)
    for _, queue := range []string{SeatBookedQueue, SeatCancelledQueue} {
        if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", queue, err)
        }
        msgs, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", queue, err)
        }
        go forward(msgs, deliveries, done)
    }

    closed := ch.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr != nil {
                return amqpErr
            }
            return errors.New("channel closed")
        case d := <-deliveries:
            if err := appendAuditLine(dir, d.RoutingKey, d.Body); err != nil {
                logger.Error().Err(err).Str("queue", d.RoutingKey).Msg("handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// forward copies msgs to out until msgs closes or done is closed.
func forward(msgs <-chan amqp.Delivery, out chan<- amqp.Delivery, done <-chan struct{}) {
    for d := range msgs {
        select {
        case out <- d:
        case <-done:
            return
        }
    }
}

func appendAuditLine(dir, queue string, body []byte) error {
    line, err := formatAuditLine(queue, body)
    if err != nil {
        return err
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, AuditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open audit file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write audit file: %w", err)
    }
    return nil
}

// formatAuditLine renders one event as a newline-terminated log line.
func formatAuditLine(queue string, body []byte) (string, error) {
    switch queue {
    case SeatBookedQueue:
        var ev SeatBookedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal %s: %w", queue, err)
        }
        return fmt.Sprintf("[%s] Seat booked | booking_id=%d | user_id=%d | batch=%s | date=%s | seat=%s | event=%s\n",
            ev.BookedAt, ev.BookingID, ev.UserID, ev.UserBatch, ev.Date, ev.SeatType, ev.EventID), nil
    case SeatCancelledQueue:
        var ev SeatCancelledEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal %s: %w", queue, err)
        }
        return fmt.Sprintf("[%s] Seat cancelled | booking_id=%d | user_id=%d | date=%s | seat=%s | migrated_to_buffer=%t | event=%s\n",
            ev.CancelledAt, ev.BookingID, ev.UserID, ev.Date, ev.SeatType, ev.CapacityMigrated, ev.EventID), nil
    }
    return "", fmt.Errorf("unknown queue %q", queue)
}

// sleep waits for d or until ctx is done.  It reports whether the full
// duration elapsed.
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
