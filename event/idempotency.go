package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// processedCacheTTL bounds memory held by the recently-processed cache.
const processedCacheTTL = time.Hour

/* Idempotency layers two independent responsibilities:
 * - durable check: persistent marker lookup, fronted by a short-term
 *   in-process cache of recently processed IDs
 * - concurrency coordination: at most one in-flight execution per event ID
 *   per process; concurrent duplicates join the in-flight attempt
 */
type Idempotency struct {
	markers MarkerReader

	mu        sync.Mutex
	processed map[string]time.Time

	inflight singleflight.Group
	now      func() time.Time
}

// NewIdempotency creates an idempotency manager backed by the given marker store.
func NewIdempotency(markers MarkerReader) *Idempotency {
	return &Idempotency{
		markers:   markers,
		processed: make(map[string]time.Time),
		now:       time.Now,
	}
}

// IsProcessed reports whether the event was already processed, consulting the
// in-process cache first and falling back to the durable store.
func (i *Idempotency) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if i.cacheHit(eventID) {
		return true, nil
	}

	processed, err := i.markers.IsProcessed(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("checking durable idempotency marker: %w", err)
	}
	if processed {
		i.MarkProcessed(eventID)
	}
	return processed, nil
}

/* Process coordinates concurrent deliveries of the same event
 * If an attempt for this ID is already in flight, the caller awaits that
 * attempt's result instead of starting a second one. The in-flight entry is
 * removed when the attempt settles regardless of outcome
 */
func (i *Idempotency) Process(eventID string, fn func() Result) (Result, bool) {
	v, _, shared := i.inflight.Do(eventID, func() (interface{}, error) {
		return fn(), nil
	})
	return v.(Result), shared
}

// MarkProcessed records the event ID in the short-term cache only.
// Durable idempotency is established by the pipeline's marker write, not here.
func (i *Idempotency) MarkProcessed(eventID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.prune()
	i.processed[eventID] = i.now()
}

func (i *Idempotency) cacheHit(eventID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	at, ok := i.processed[eventID]
	if !ok {
		return false
	}
	if i.now().Sub(at) > processedCacheTTL {
		delete(i.processed, eventID)
		return false
	}
	return true
}

// prune evicts cache entries older than the TTL. Caller must hold the lock.
func (i *Idempotency) prune() {
	cutoff := i.now().Add(-processedCacheTTL)
	for id, at := range i.processed {
		if at.Before(cutoff) {
			delete(i.processed, id)
		}
	}
}
