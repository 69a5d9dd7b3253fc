package event

import (
	"context"
	"log/slog"
)

/* Service represents the pipeline's business logic layer
 * Composes idempotency coordination around the processor, with the retry
 * manager on retryable failures and the dead letter sink on fatal ones
 */

// UseCase defines the operations the HTTP entry point consumes.
type UseCase interface {
	// IsProcessed reports whether the event was already processed (cache or durable marker).
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Handle processes one verified event; shared is true when this call
	// joined an attempt already in flight for the same event ID.
	Handle(ctx context.Context, ev Event, pctx ProcessingContext) (result Result, shared bool)
	// DeadLetters lists dead letter records for operator inspection.
	DeadLetters(ctx context.Context, limit int) ([]DeadLetterEntry, error)
}

type Service struct {
	Idempotency *Idempotency
	Processor   *Processor
	Retry       *RetryManager
	DeadLetter  *DeadLetter
	Store       Store
	Logger      *slog.Logger
}

// NewService creates the pipeline service with dependency injection.
func NewService(idem *Idempotency, processor *Processor, retry *RetryManager, deadLetter *DeadLetter, store Store, logger *slog.Logger) *Service {
	return &Service{
		Idempotency: idem,
		Processor:   processor,
		Retry:       retry,
		DeadLetter:  deadLetter,
		Store:       store,
		Logger:      logger,
	}
}

// IsProcessed checks the short-term cache and the durable marker log.
func (s *Service) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.Idempotency.IsProcessed(ctx, eventID)
}

/* Handle runs one delivery through the pipeline under per-event coordination:
 * concurrent duplicates of the same event ID share a single execution.
 * Successful events are durably marked so a restart cannot reprocess a
 * redelivery; fatal failures are dead-lettered with their attempt count
 */
func (s *Service) Handle(ctx context.Context, ev Event, pctx ProcessingContext) (Result, bool) {
	return s.Idempotency.Process(ev.ID, func() Result {
		result := s.Processor.Process(ctx, ev, pctx)

		if !result.Success && result.Retryable {
			result = s.Retry.Retry(ctx, ev, pctx, result)
		} else if !result.Success {
			// Fatal on the first attempt (e.g. unsupported event type):
			// never retried, recorded with zero attempts.
			s.DeadLetter.Send(ctx, ev, result.Error, 0, pctx.TraceID)
		}

		if result.Success {
			s.Idempotency.MarkProcessed(ev.ID)
			if err := s.Store.MarkProcessed(ctx, ev.ID); err != nil {
				// Best effort: the cache still dedupes within this process.
				s.Logger.Error("writing durable processed marker",
					"event_id", ev.ID, "trace_id", pctx.TraceID, "error", err)
			}
		}
		return result
	})
}

// DeadLetters lists dead letter records, newest first.
func (s *Service) DeadLetters(ctx context.Context, limit int) ([]DeadLetterEntry, error) {
	return s.Store.ListDeadLetters(ctx, limit)
}
