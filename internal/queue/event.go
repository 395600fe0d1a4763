// Package queue carries booking events over RabbitMQ.  The publisher side
// is used by the hold manager; the consumer side appends every event to an
// audit log file.
package queue

import (
    "fmt"
    "strconv"
    "strings"

    "github.com/iliyamo/bus-seat-reservation/internal/model"
)

// FormatAuditLine renders an event as a single human-friendly log line.
func FormatAuditLine(ev model.BookingEvent) string {
    nums := make([]string, 0, len(ev.Seats))
    for _, n := range ev.Seats {
        nums = append(nums, strconv.Itoa(n))
    }
    seats := "[" + strings.Join(nums, ",") + "]"

    switch ev.Type {
    case model.EventHoldConfirmed:
        return fmt.Sprintf("[%s] Hold confirmed | hold_id=%s | vehicle_id=%d | total=%d cents | seats=%s\n",
            ev.OccurredAt, ev.HoldID, ev.VehicleID, ev.AmountCents, seats)
    case model.EventVehicleReset:
        return fmt.Sprintf("[%s] Vehicle reset | vehicle_id=%d | actor=%s | cleared=%d | booked=%s\n",
            ev.OccurredAt, ev.VehicleID, ev.Actor, ev.Cleared, seats)
    default:
        return fmt.Sprintf("[%s] %s | hold_id=%s | vehicle_id=%d | seats=%s\n",
            ev.OccurredAt, ev.Type, ev.HoldID, ev.VehicleID, seats)
    }
}
