package event_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marcelsud/payhook/event"
	"github.com/marcelsud/payhook/event/mocks"
	"github.com/marcelsud/payhook/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newServiceFixture(t *testing.T, store *mocks.Store, handler event.HandlerFunc) *event.Service {
	t.Helper()

	registry := event.NewRegistry()
	if handler != nil {
		require.NoError(t, registry.Register("payment_intent.succeeded", handler))
	}

	collector := metrics.NewInMemory()
	logger := discardLogger()
	processor := event.NewProcessor(registry, time.Second, collector, logger)
	deadLetter := event.NewDeadLetter(store, collector, logger)
	retry := event.NewRetryManager(processor, deadLetter, collector, 2, []time.Duration{time.Millisecond})
	idem := event.NewIdempotency(store)

	return event.NewService(idem, processor, retry, deadLetter, store, logger)
}

func TestService_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("success durably marks the event", func(t *testing.T) {
		store := mocks.NewStore(t)
		svc := newServiceFixture(t, store, func(ctx context.Context, ev event.Event) error {
			return nil
		})

		store.On("MarkProcessed", mock.Anything, "evt_1").Return(nil).Once()

		ev := testEvent("evt_1", "payment_intent.succeeded")
		result, _ := svc.Handle(ctx, ev, event.NewProcessingContext(ev, "trace-1"))

		assert.True(t, result.Success)
		store.AssertExpectations(t)

		// Subsequent sequential delivery short-circuits via the cache
		processed, err := svc.IsProcessed(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("marker write failure does not fail the request", func(t *testing.T) {
		store := mocks.NewStore(t)
		svc := newServiceFixture(t, store, func(ctx context.Context, ev event.Event) error {
			return nil
		})

		store.On("MarkProcessed", mock.Anything, "evt_2").Return(errors.New("redis down"))

		ev := testEvent("evt_2", "payment_intent.succeeded")
		result, _ := svc.Handle(ctx, ev, event.NewProcessingContext(ev, "trace-2"))

		assert.True(t, result.Success)
	})

	t.Run("fatal failure dead-letters with zero attempts", func(t *testing.T) {
		store := mocks.NewStore(t)
		svc := newServiceFixture(t, store, nil)

		store.On("AppendDeadLetter", mock.Anything, event.MatchDeadLetter(func(entry event.DeadLetterEntry) bool {
			return entry.EventID == "evt_3" && entry.Attempts == 0
		})).Return(nil).Once()

		ev := testEvent("evt_3", "payment_intent.succeeded")
		result, _ := svc.Handle(ctx, ev, event.NewProcessingContext(ev, "trace-3"))

		assert.False(t, result.Success)
		assert.False(t, result.Retryable)
		store.AssertNotCalled(t, "MarkProcessed")
	})

	t.Run("retryable failure exhausts retries then dead-letters", func(t *testing.T) {
		store := mocks.NewStore(t)
		svc := newServiceFixture(t, store, func(ctx context.Context, ev event.Event) error {
			return errors.New("downstream unavailable")
		})

		store.On("AppendDeadLetter", mock.Anything, event.MatchDeadLetter(func(entry event.DeadLetterEntry) bool {
			return entry.EventID == "evt_4" && entry.Attempts == 2
		})).Return(nil).Once()

		ev := testEvent("evt_4", "payment_intent.succeeded")
		result, _ := svc.Handle(ctx, ev, event.NewProcessingContext(ev, "trace-4"))

		assert.False(t, result.Success)
		assert.False(t, result.Retryable)
		store.AssertNumberOfCalls(t, "AppendDeadLetter", 1)
	})
}

func TestService_DeadLetters(t *testing.T) {
	ctx := context.Background()

	t.Run("lists records from the store", func(t *testing.T) {
		store := mocks.NewStore(t)
		svc := newServiceFixture(t, store, nil)

		entries := []event.DeadLetterEntry{
			{EventID: "evt_9", EventType: "charge.refunded", Attempts: 3},
		}
		store.On("ListDeadLetters", ctx, 10).Return(entries, nil)

		got, err := svc.DeadLetters(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, entries, got)
	})
}
