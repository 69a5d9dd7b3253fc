package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcelsud/payhook/metrics"
)

/* DeadLetter durably records events that exhausted retries or failed fatally
 * Writes are best effort: a failed dead letter write is logged and swallowed,
 * never allowed to fail the request path
 */
type DeadLetter struct {
	writer  DeadLetterWriter
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewDeadLetter creates a dead letter sink backed by the given writer.
func NewDeadLetter(writer DeadLetterWriter, recorder metrics.Recorder, logger *slog.Logger) *DeadLetter {
	return &DeadLetter{
		writer:  writer,
		metrics: recorder,
		logger:  logger,
	}
}

// Send appends a dead letter record for a permanently failed event.
func (dl *DeadLetter) Send(ctx context.Context, ev Event, reason string, attempts int, traceID string) {
	entry := DeadLetterEntry{
		EventID:    ev.ID,
		EventType:  ev.Type,
		Payload:    ev.RawBody,
		Reason:     reason,
		Attempts:   attempts,
		TraceID:    traceID,
		OccurredAt: ev.Created,
		CreatedAt:  time.Now(),
	}

	dl.metrics.RecordDeadLetter(ev.Type)

	if err := dl.writer.AppendDeadLetter(ctx, entry); err != nil {
		// Losing a dead letter record is preferred over cascading the failure.
		dl.logger.Error("DEAD_LETTER write failed",
			"event_id", ev.ID,
			"event_type", ev.Type,
			"attempts", attempts,
			"trace_id", traceID,
			"error", err,
		)
		return
	}

	dl.logger.Warn("DEAD_LETTER event recorded",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"attempts", attempts,
		"reason", reason,
		"trace_id", traceID,
	)
}
