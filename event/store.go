package event

import (
	"context"
	"time"
)

/* Small, focused interfaces following "The Go Way"
 * The durable store is a narrow collaborator: it checks/records idempotency
 * markers and appends dead letter records, nothing more
 */

// DeadLetterEntry is a durable record of a permanently failed event.
// Never mutated after creation; intended for manual operator review/replay.
type DeadLetterEntry struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Payload    []byte    `json:"payload"`
	Reason     string    `json:"reason"`
	Attempts   int       `json:"attempts"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// MarkerReader provides durable idempotency lookups
type MarkerReader interface {
	/* IsProcessed reports whether a durable marker exists for the event ID
	 * Its presence is the sole durable source of truth for idempotency
	 * across process restarts
	 */
	IsProcessed(ctx context.Context, eventID string) (bool, error)
}

// MarkerWriter records durable idempotency markers
type MarkerWriter interface {
	MarkProcessed(ctx context.Context, eventID string) error
}

// DeadLetterWriter appends dead letter records
type DeadLetterWriter interface {
	AppendDeadLetter(ctx context.Context, entry DeadLetterEntry) error
}

// DeadLetterReader lists dead letter records for operator inspection
type DeadLetterReader interface {
	ListDeadLetters(ctx context.Context, limit int) ([]DeadLetterEntry, error)
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Store interface {
	MarkerReader
	MarkerWriter
	DeadLetterWriter
	DeadLetterReader
	Close(ctx context.Context) error
}
