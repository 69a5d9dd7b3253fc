package event

import (
	"encoding/json"
	"time"
)

/* Event represents a verified inbound webhook delivery
 * Uses value semantics as it represents data, not behavior
 * Immutable once constructed by the signature verifier
 */
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Payload json.RawMessage
	// RawBody is the original request body, kept for dead letter serialization
	RawBody []byte
}

// ProcessingContext carries per-attempt metadata through the pipeline.
// Owned by a single request's execution and discarded afterwards.
type ProcessingContext struct {
	EventID   string
	EventType string
	Attempt   int
	StartedAt time.Time
	TraceID   string
	Metadata  map[string]string
}

// NewProcessingContext creates the context for the first attempt of an event.
func NewProcessingContext(ev Event, traceID string) ProcessingContext {
	return ProcessingContext{
		EventID:   ev.ID,
		EventType: ev.Type,
		Attempt:   0,
		StartedAt: time.Now(),
		TraceID:   traceID,
		Metadata:  make(map[string]string),
	}
}

// WithAttempt returns a copy of the context for the given attempt number.
func (pc ProcessingContext) WithAttempt(attempt int) ProcessingContext {
	pc.Attempt = attempt
	return pc
}

// Result is the outcome of one processing attempt.
// Retryable is only meaningful when Success is false.
type Result struct {
	Success    bool
	Error      string
	DurationMs int64
	Retryable  bool
	Metadata   map[string]string
}
