package event_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelsud/payhook/event"
	"github.com/marcelsud/payhook/event/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotency_IsProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown event is not processed", func(t *testing.T) {
		store := mocks.NewStore(t)
		idem := event.NewIdempotency(store)

		store.On("IsProcessed", ctx, "evt_1").Return(false, nil)

		processed, err := idem.IsProcessed(ctx, "evt_1")

		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("durable marker hit populates the cache", func(t *testing.T) {
		store := mocks.NewStore(t)
		idem := event.NewIdempotency(store)

		// The durable store is only consulted once for the same ID
		store.On("IsProcessed", ctx, "evt_2").Return(true, nil).Once()

		processed, err := idem.IsProcessed(ctx, "evt_2")
		require.NoError(t, err)
		assert.True(t, processed)

		processed, err = idem.IsProcessed(ctx, "evt_2")
		require.NoError(t, err)
		assert.True(t, processed)
		store.AssertNumberOfCalls(t, "IsProcessed", 1)
	})

	t.Run("MarkProcessed writes the cache only", func(t *testing.T) {
		store := mocks.NewStore(t)
		idem := event.NewIdempotency(store)

		idem.MarkProcessed("evt_3")

		processed, err := idem.IsProcessed(ctx, "evt_3")
		require.NoError(t, err)
		assert.True(t, processed)
		store.AssertNotCalled(t, "MarkProcessed")
		store.AssertNotCalled(t, "IsProcessed")
	})

	t.Run("store error is propagated", func(t *testing.T) {
		store := mocks.NewStore(t)
		idem := event.NewIdempotency(store)

		store.On("IsProcessed", ctx, "evt_4").Return(false, assert.AnError)

		_, err := idem.IsProcessed(ctx, "evt_4")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checking durable idempotency marker")
	})
}

func TestIdempotency_Process(t *testing.T) {
	t.Run("concurrent duplicates share one execution", func(t *testing.T) {
		store := mocks.NewStore(t)
		idem := event.NewIdempotency(store)

		var executions int32
		release := make(chan struct{})
		fn := func() event.Result {
			atomic.AddInt32(&executions, 1)
			<-release
			return event.Result{Success: true, DurationMs: 7}
		}

		const callers = 4
		results := make([]event.Result, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = idem.Process("evt_shared", fn)
			}(i)
		}

		// Let every caller reach the in-flight map before the attempt settles
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&executions))
		for _, result := range results {
			assert.True(t, result.Success)
			assert.Equal(t, int64(7), result.DurationMs)
		}
	})

	t.Run("in-flight entry is removed after settlement", func(t *testing.T) {
		store := mocks.NewStore(t)
		idem := event.NewIdempotency(store)

		var executions int32
		fn := func() event.Result {
			atomic.AddInt32(&executions, 1)
			return event.Result{Success: false, Retryable: false}
		}

		first, _ := idem.Process("evt_again", fn)
		second, _ := idem.Process("evt_again", fn)

		// Sequential calls each get their own execution; failure does not leak
		// an in-flight entry
		assert.Equal(t, int32(2), atomic.LoadInt32(&executions))
		assert.False(t, first.Success)
		assert.False(t, second.Success)
	})

	t.Run("different event IDs do not coordinate", func(t *testing.T) {
		store := mocks.NewStore(t)
		idem := event.NewIdempotency(store)

		var executions int32
		fn := func() event.Result {
			atomic.AddInt32(&executions, 1)
			return event.Result{Success: true}
		}

		idem.Process("evt_a", fn)
		idem.Process("evt_b", fn)

		assert.Equal(t, int32(2), atomic.LoadInt32(&executions))
	})
}
