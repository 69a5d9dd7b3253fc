package event

import (
	"context"
	"sync"
	"time"

	"github.com/marcelsud/payhook/metrics"
)

// attemptTTL bounds memory held by the per-event attempt counters.
const attemptTTL = time.Hour

type attemptEntry struct {
	count   int
	touched time.Time
}

/* RetryManager re-invokes the processor for retryable failures with a fixed
 * backoff schedule up to an attempt ceiling, then forwards to the dead letter
 * sink. Attempt counters are process-local and pruned after attemptTTL
 */
type RetryManager struct {
	processor  *Processor
	deadLetter *DeadLetter
	metrics    metrics.Recorder

	maxRetries int
	backoff    []time.Duration

	mu       sync.Mutex
	attempts map[string]attemptEntry
	now      func() time.Time
}

// NewRetryManager creates a retry manager with the given schedule and ceiling.
func NewRetryManager(processor *Processor, deadLetter *DeadLetter, recorder metrics.Recorder, maxRetries int, backoff []time.Duration) *RetryManager {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if len(backoff) == 0 {
		backoff = []time.Duration{time.Second, 5 * time.Second, 10 * time.Second}
	}
	return &RetryManager{
		processor:  processor,
		deadLetter: deadLetter,
		metrics:    recorder,
		maxRetries: maxRetries,
		backoff:    backoff,
		attempts:   make(map[string]attemptEntry),
		now:        time.Now,
	}
}

/* Retry drives the backoff loop for an event whose first attempt failed
 * retryably. Each wait is a timer raced against ctx so shutdown or a request
 * deadline can preempt it. On ceiling exhaustion the event is dead-lettered
 * and a final non-retryable failure is returned
 */
func (rm *RetryManager) Retry(ctx context.Context, ev Event, pctx ProcessingContext, lastResult Result) Result {
	result := lastResult

	for {
		attempt := rm.increment(ev.ID)
		if attempt > rm.maxRetries {
			rm.deadLetter.Send(ctx, ev, result.Error, rm.maxRetries, pctx.TraceID)
			rm.clear(ev.ID)
			result.Retryable = false
			return result
		}

		if !rm.wait(ctx, rm.delayFor(attempt)) {
			// Context ended before the backoff elapsed; report the last
			// failure without consuming further attempts.
			result.Retryable = false
			return result
		}

		rm.metrics.RecordRetry(ev.Type)
		result = rm.processor.Process(ctx, ev, pctx.WithAttempt(attempt))
		if result.Success {
			rm.clear(ev.ID)
			return result
		}
		if !result.Retryable {
			rm.deadLetter.Send(ctx, ev, result.Error, attempt, pctx.TraceID)
			rm.clear(ev.ID)
			return result
		}
	}
}

// delayFor returns the backoff delay before the given attempt (1-based),
// falling back to the last configured delay beyond the schedule.
func (rm *RetryManager) delayFor(attempt int) time.Duration {
	if attempt <= len(rm.backoff) {
		return rm.backoff[attempt-1]
	}
	return rm.backoff[len(rm.backoff)-1]
}

// wait sleeps for the delay, returning false if ctx ended first.
func (rm *RetryManager) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (rm *RetryManager) increment(eventID string) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.prune()
	entry := rm.attempts[eventID]
	entry.count++
	entry.touched = rm.now()
	rm.attempts[eventID] = entry
	return entry.count
}

func (rm *RetryManager) clear(eventID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.attempts, eventID)
}

// prune evicts stale attempt counters. Caller must hold the lock.
func (rm *RetryManager) prune() {
	cutoff := rm.now().Add(-attemptTTL)
	for id, entry := range rm.attempts {
		if entry.touched.Before(cutoff) {
			delete(rm.attempts, id)
		}
	}
}
