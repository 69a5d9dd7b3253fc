package metrics

import (
	"sync"
	"time"
)

/* InMemory is the process-local Collector implementation
 * All request-handling goroutines share one instance injected at startup;
 * counters reset when the process restarts
 */
type InMemory struct {
	mu sync.Mutex

	received      int64
	succeeded     int64
	failed        int64
	retries       int64
	duplicates    int64
	rateLimited   int64
	deadLettered  int64
	totalDuration time.Duration
	perType       map[string]TypeStats
}

// NewInMemory creates an empty in-memory collector.
func NewInMemory() *InMemory {
	return &InMemory{
		perType: make(map[string]TypeStats),
	}
}

// RecordOutcome records one processing attempt's result and duration.
func (c *InMemory) RecordOutcome(eventType string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.received++
	c.totalDuration += duration

	stats := c.perType[eventType]
	stats.Received++
	if success {
		c.succeeded++
		stats.Succeeded++
	} else {
		c.failed++
		stats.Failed++
	}
	c.perType[eventType] = stats
}

// RecordRetry records a retry attempt being started.
func (c *InMemory) RecordRetry(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries++
	stats := c.perType[eventType]
	stats.Retries++
	c.perType[eventType] = stats
}

// RecordDuplicate records a delivery short-circuited as already processed.
func (c *InMemory) RecordDuplicate(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duplicates++
	stats := c.perType[eventType]
	stats.Duplicates++
	c.perType[eventType] = stats
}

// RecordRateLimited records a delivery acknowledged but skipped.
func (c *InMemory) RecordRateLimited() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimited++
}

// RecordDeadLetter records an event forwarded to the dead letter sink.
func (c *InMemory) RecordDeadLetter(eventType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadLettered++
	stats := c.perType[eventType]
	stats.DeadLettered++
	c.perType[eventType] = stats
}

// Snapshot returns a copy of the current aggregated state.
func (c *InMemory) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	perType := make(map[string]TypeStats, len(c.perType))
	for t, stats := range c.perType {
		perType[t] = stats
	}

	snap := Snapshot{
		Received:     c.received,
		Succeeded:    c.succeeded,
		Failed:       c.failed,
		Retries:      c.retries,
		Duplicates:   c.duplicates,
		RateLimited:  c.rateLimited,
		DeadLettered: c.deadLettered,
		PerType:      perType,
		Timestamp:    time.Now(),
	}
	if c.received > 0 {
		snap.AvgDurationMs = float64(c.totalDuration.Milliseconds()) / float64(c.received)
		snap.SuccessRate = float64(c.succeeded) / float64(c.received)
	}
	return snap
}
