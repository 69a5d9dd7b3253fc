package metrics

import "time"

// Recorder receives pipeline outcomes at every terminal point.
type Recorder interface {
	// RecordOutcome records one processing attempt's result and duration
	RecordOutcome(eventType string, success bool, duration time.Duration)

	// RecordRetry records a retry attempt being started
	RecordRetry(eventType string)

	// RecordDuplicate records a delivery short-circuited as already processed
	RecordDuplicate(eventType string)

	// RecordRateLimited records a delivery acknowledged but skipped
	RecordRateLimited()

	// RecordDeadLetter records an event forwarded to the dead letter sink
	RecordDeadLetter(eventType string)
}

// Collector aggregates pipeline counters for observability.
// In-memory only; reset each process lifetime.
type Collector interface {
	Recorder

	// Snapshot returns the current aggregated state
	Snapshot() Snapshot
}

// TypeStats aggregates per-event-type outcomes.
type TypeStats struct {
	Received     int64 `json:"received"`
	Succeeded    int64 `json:"succeeded"`
	Failed       int64 `json:"failed"`
	Retries      int64 `json:"retries"`
	Duplicates   int64 `json:"duplicates"`
	DeadLettered int64 `json:"dead_lettered"`
}

// Snapshot is a point-in-time view of the collector's state.
type Snapshot struct {
	Received      int64                `json:"received"`
	Succeeded     int64                `json:"succeeded"`
	Failed        int64                `json:"failed"`
	Retries       int64                `json:"retries"`
	Duplicates    int64                `json:"duplicates"`
	RateLimited   int64                `json:"rate_limited"`
	DeadLettered  int64                `json:"dead_lettered"`
	AvgDurationMs float64              `json:"avg_duration_ms"`
	SuccessRate   float64              `json:"success_rate"`
	PerType       map[string]TypeStats `json:"per_type"`
	Timestamp     time.Time            `json:"timestamp"`
}
