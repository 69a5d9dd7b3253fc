package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeadLetter(t *testing.T) {
	t.Run("success - full record", func(t *testing.T) {
		entry, err := parseDeadLetter("evt_1", map[string]string{
			"event_id":    "evt_1",
			"event_type":  "payment_intent.succeeded",
			"payload":     `{"id":"pi_1"}`,
			"reason":      "downstream unavailable",
			"attempts":    "3",
			"trace_id":    "trace-1",
			"occurred_at": "1700000000",
			"created_at":  "1700000001",
		})
		require.NoError(t, err)
		assert.Equal(t, "evt_1", entry.EventID)
		assert.Equal(t, "payment_intent.succeeded", entry.EventType)
		assert.Equal(t, `{"id":"pi_1"}`, string(entry.Payload))
		assert.Equal(t, 3, entry.Attempts)
		assert.Equal(t, "trace-1", entry.TraceID)
		assert.Equal(t, int64(1700000000), entry.OccurredAt.Unix())
		assert.Equal(t, int64(1700000001), entry.CreatedAt.Unix())
	})

	t.Run("error - garbage attempts", func(t *testing.T) {
		_, err := parseDeadLetter("evt_2", map[string]string{
			"attempts":    "three",
			"occurred_at": "1700000000",
			"created_at":  "1700000000",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing attempts")
		assert.Contains(t, err.Error(), "evt_2")
	})

	t.Run("error - missing timestamp field", func(t *testing.T) {
		_, err := parseDeadLetter("evt_3", map[string]string{
			"attempts":   "1",
			"created_at": "1700000000",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing occurred_at")
	})
}
