package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/payhook/event"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of event.Store
 * Uses plain keys for processed markers (durable idempotency log) and
 * Hashes plus a sorted-set index for dead letter records
 */

const (
	processedPrefix = "webhook:processed" // Marker naming: webhook:processed:{event_id}
	dlqPrefix       = "webhook:dlq"       // Hash naming: webhook:dlq:{event_id}
	dlqIndexKey     = "webhook:dlq:index" // Sorted set scored by creation time
)

type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Store{
		client: client,
	}, nil
}

// IsProcessed reports whether a durable marker or dead letter record exists
// for the event ID. Either counts as a prior trace of the event.
func (s *Store) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	markerKey := fmt.Sprintf("%s:%s", processedPrefix, eventID)
	dlqKey := fmt.Sprintf("%s:%s", dlqPrefix, eventID)

	exists, err := s.client.Exists(ctx, markerKey, dlqKey).Result()
	if err != nil {
		return false, fmt.Errorf("checking processed marker: %w", err)
	}
	return exists > 0, nil
}

// MarkProcessed writes the durable idempotency marker for the event ID.
// At most one marker exists per event ID; rewriting it is a no-op.
func (s *Store) MarkProcessed(ctx context.Context, eventID string) error {
	markerKey := fmt.Sprintf("%s:%s", processedPrefix, eventID)

	err := s.client.Set(ctx, markerKey, time.Now().Unix(), 0).Err()
	if err != nil {
		return fmt.Errorf("writing processed marker: %w", err)
	}
	return nil
}

// AppendDeadLetter writes a dead letter record and indexes it by creation time.
func (s *Store) AppendDeadLetter(ctx context.Context, entry event.DeadLetterEntry) error {
	dlqKey := fmt.Sprintf("%s:%s", dlqPrefix, entry.EventID)

	err := s.client.HSet(ctx, dlqKey, map[string]interface{}{
		"event_id":    entry.EventID,
		"event_type":  entry.EventType,
		"payload":     entry.Payload,
		"reason":      entry.Reason,
		"attempts":    entry.Attempts,
		"trace_id":    entry.TraceID,
		"occurred_at": entry.OccurredAt.Unix(),
		"created_at":  entry.CreatedAt.Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing dead letter record: %w", err)
	}

	err = s.client.ZAdd(ctx, dlqIndexKey, redis.Z{
		Score:  float64(entry.CreatedAt.Unix()),
		Member: entry.EventID,
	}).Err()
	if err != nil {
		return fmt.Errorf("indexing dead letter record: %w", err)
	}

	return nil
}

// ListDeadLetters returns dead letter records, newest first.
func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]event.DeadLetterEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	ids, err := s.client.ZRevRange(ctx, dlqIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing dead letter index: %w", err)
	}

	entries := make([]event.DeadLetterEntry, 0, len(ids))
	for _, id := range ids {
		dlqKey := fmt.Sprintf("%s:%s", dlqPrefix, id)
		data, err := s.client.HGetAll(ctx, dlqKey).Result()
		if err != nil {
			return nil, fmt.Errorf("getting dead letter record %s: %w", id, err)
		}
		if len(data) == 0 {
			// Index entry without a record; skip rather than fail the listing
			continue
		}

		entry, err := parseDeadLetter(id, data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// parseDeadLetter converts a stored hash back into a dead letter record.
func parseDeadLetter(id string, data map[string]string) (event.DeadLetterEntry, error) {
	attempts, err := strconv.Atoi(data["attempts"])
	if err != nil {
		return event.DeadLetterEntry{}, fmt.Errorf("parsing attempts of dead letter record %s: %w", id, err)
	}
	occurredAt, err := strconv.ParseInt(data["occurred_at"], 10, 64)
	if err != nil {
		return event.DeadLetterEntry{}, fmt.Errorf("parsing occurred_at of dead letter record %s: %w", id, err)
	}
	createdAt, err := strconv.ParseInt(data["created_at"], 10, 64)
	if err != nil {
		return event.DeadLetterEntry{}, fmt.Errorf("parsing created_at of dead letter record %s: %w", id, err)
	}

	return event.DeadLetterEntry{
		EventID:    data["event_id"],
		EventType:  data["event_type"],
		Payload:    []byte(data["payload"]),
		Reason:     data["reason"],
		Attempts:   attempts,
		TraceID:    data["trace_id"],
		OccurredAt: time.Unix(occurredAt, 0),
		CreatedAt:  time.Unix(createdAt, 0),
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (s *Store) GetClient() *redis.Client {
	return s.client
}
