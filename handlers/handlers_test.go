package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/marcelsud/payhook/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func payloadEvent(t *testing.T, eventType, payload string) event.Event {
	t.Helper()
	return event.Event{
		ID:      "evt_1",
		Type:    eventType,
		Payload: json.RawMessage(payload),
	}
}

func TestActions(t *testing.T) {
	actions := Actions(testLogger())

	for _, name := range []string{"fulfill_order", "record_payment", "record_payment_failure", "record_refund", "log_only"} {
		assert.Contains(t, actions, name)
	}
}

func TestFulfillOrder(t *testing.T) {
	ctx := context.Background()
	handler := FulfillOrder(testLogger())

	t.Run("success", func(t *testing.T) {
		ev := payloadEvent(t, "checkout.session.completed",
			`{"id":"cs_1","customer_email":"fan@example.com","amount_total":4200,"currency":"usd"}`)
		require.NoError(t, handler(ctx, ev))
	})

	t.Run("error - missing session id", func(t *testing.T) {
		ev := payloadEvent(t, "checkout.session.completed", `{"amount_total":4200}`)
		err := handler(ctx, ev)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing id")
	})

	t.Run("error - malformed payload", func(t *testing.T) {
		ev := payloadEvent(t, "checkout.session.completed", `not json`)
		require.Error(t, handler(ctx, ev))
	})
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	handler := RecordPayment(testLogger())

	t.Run("success", func(t *testing.T) {
		ev := payloadEvent(t, "payment_intent.succeeded",
			`{"id":"pi_1","amount":4200,"currency":"usd"}`)
		require.NoError(t, handler(ctx, ev))
	})

	t.Run("error - missing intent id", func(t *testing.T) {
		ev := payloadEvent(t, "payment_intent.succeeded", `{"amount":4200}`)
		require.Error(t, handler(ctx, ev))
	})
}

func TestRecordPaymentFailure(t *testing.T) {
	ev := payloadEvent(t, "payment_intent.payment_failed",
		`{"id":"pi_2","last_payment_error":{"message":"card declined"}}`)
	require.NoError(t, RecordPaymentFailure(testLogger())(context.Background(), ev))
}

func TestRecordRefund(t *testing.T) {
	ctx := context.Background()
	handler := RecordRefund(testLogger())

	t.Run("success", func(t *testing.T) {
		ev := payloadEvent(t, "charge.refunded",
			`{"id":"ch_1","amount_refunded":4200,"currency":"usd"}`)
		require.NoError(t, handler(ctx, ev))
	})

	t.Run("error - missing charge id", func(t *testing.T) {
		ev := payloadEvent(t, "charge.refunded", `{"amount_refunded":4200}`)
		require.Error(t, handler(ctx, ev))
	})
}

func TestLogOnly(t *testing.T) {
	ev := payloadEvent(t, "customer.subscription.updated", `{}`)
	require.NoError(t, LogOnly(testLogger())(context.Background(), ev))
}
