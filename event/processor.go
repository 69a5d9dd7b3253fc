package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelsud/payhook/metrics"
)

/* Processor dispatches a verified event to its type handler under a bounded
 * timeout and classifies the outcome (success / retryable / fatal)
 * Errors raised by handlers are converted into Results at this boundary,
 * never propagated as panics past it
 */
type Processor struct {
	registry *Registry
	timeout  time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewProcessor creates a processor with the given handler registry and timeout.
func NewProcessor(registry *Registry, timeout time.Duration, recorder metrics.Recorder, logger *slog.Logger) *Processor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Processor{
		registry: registry,
		timeout:  timeout,
		metrics:  recorder,
		logger:   logger,
	}
}

// Process runs the handler for the event and returns the attempt's outcome.
// Duration and outcome are recorded to the metrics collector on every path.
func (p *Processor) Process(ctx context.Context, ev Event, pctx ProcessingContext) Result {
	start := time.Now()

	handler, err := p.registry.Get(ev.Type)
	if err != nil {
		return p.finish(ev, pctx, start, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		done <- handler(runCtx, ev)
	}()

	select {
	case err = <-done:
	case <-runCtx.Done():
		err = fmt.Errorf("%w after %s", ErrProcessingTimeout, p.timeout)
	}

	return p.finish(ev, pctx, start, err)
}

// finish classifies the attempt outcome and records it.
func (p *Processor) finish(ev Event, pctx ProcessingContext, start time.Time, err error) Result {
	duration := time.Since(start)

	result := Result{
		Success:    err == nil,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		result.Retryable = Retryable(err)
		if Fatal(err) {
			result.Metadata = map[string]string{"fatal": "true"}
		}
		p.logger.Warn("event processing attempt failed",
			"event_id", ev.ID,
			"event_type", ev.Type,
			"attempt", pctx.Attempt,
			"trace_id", pctx.TraceID,
			"retryable", result.Retryable,
			"error", err,
		)
	}

	p.metrics.RecordOutcome(ev.Type, result.Success, duration)
	return result
}

// Timeout returns the configured per-attempt processing timeout.
func (p *Processor) Timeout() time.Duration {
	return p.timeout
}
