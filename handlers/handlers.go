package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/marcelsud/payhook/event"
)

/* Built-in handler actions the registry binds event types to
 * These stand in for the surrounding application's side effects (order
 * fulfillment, payment bookkeeping); the pipeline treats them as external
 * collaborators and only observes their error return
 */

// Actions returns the named actions available to events.yaml bindings.
func Actions(logger *slog.Logger) map[string]event.HandlerFunc {
	return map[string]event.HandlerFunc{
		"fulfill_order":          FulfillOrder(logger),
		"record_payment":         RecordPayment(logger),
		"record_payment_failure": RecordPaymentFailure(logger),
		"record_refund":          RecordRefund(logger),
		"log_only":               LogOnly(logger),
	}
}

// checkoutSession is the slice of the payload the fulfillment action needs.
type checkoutSession struct {
	ID            string `json:"id"`
	CustomerEmail string `json:"customer_email"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
}

// FulfillOrder handles checkout.session.completed events.
func FulfillOrder(logger *slog.Logger) event.HandlerFunc {
	return func(ctx context.Context, ev event.Event) error {
		var session checkoutSession
		if err := json.Unmarshal(ev.Payload, &session); err != nil {
			return fmt.Errorf("parsing checkout session: %w", err)
		}
		if session.ID == "" {
			return fmt.Errorf("checkout session missing id")
		}

		logger.Info("order fulfilled",
			"event_id", ev.ID,
			"session_id", session.ID,
			"customer_email", session.CustomerEmail,
			"amount_total", session.AmountTotal,
			"currency", session.Currency,
		)
		return nil
	}
}

// paymentIntent is the slice of the payload the payment actions need.
type paymentIntent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	LastError struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// RecordPayment handles payment_intent.succeeded events.
func RecordPayment(logger *slog.Logger) event.HandlerFunc {
	return func(ctx context.Context, ev event.Event) error {
		var intent paymentIntent
		if err := json.Unmarshal(ev.Payload, &intent); err != nil {
			return fmt.Errorf("parsing payment intent: %w", err)
		}
		if intent.ID == "" {
			return fmt.Errorf("payment intent missing id")
		}

		logger.Info("payment recorded",
			"event_id", ev.ID,
			"payment_intent", intent.ID,
			"amount", intent.Amount,
			"currency", intent.Currency,
		)
		return nil
	}
}

// RecordPaymentFailure handles payment_intent.payment_failed events.
func RecordPaymentFailure(logger *slog.Logger) event.HandlerFunc {
	return func(ctx context.Context, ev event.Event) error {
		var intent paymentIntent
		if err := json.Unmarshal(ev.Payload, &intent); err != nil {
			return fmt.Errorf("parsing payment intent: %w", err)
		}

		logger.Warn("payment failed",
			"event_id", ev.ID,
			"payment_intent", intent.ID,
			"reason", intent.LastError.Message,
		)
		return nil
	}
}

// charge is the slice of the payload the refund action needs.
type charge struct {
	ID             string `json:"id"`
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
}

// RecordRefund handles charge.refunded events.
func RecordRefund(logger *slog.Logger) event.HandlerFunc {
	return func(ctx context.Context, ev event.Event) error {
		var ch charge
		if err := json.Unmarshal(ev.Payload, &ch); err != nil {
			return fmt.Errorf("parsing charge: %w", err)
		}
		if ch.ID == "" {
			return fmt.Errorf("charge missing id")
		}

		logger.Info("refund recorded",
			"event_id", ev.ID,
			"charge", ch.ID,
			"amount_refunded", ch.AmountRefunded,
			"currency", ch.Currency,
		)
		return nil
	}
}

// LogOnly records the event without further side effects.
func LogOnly(logger *slog.Logger) event.HandlerFunc {
	return func(ctx context.Context, ev event.Event) error {
		logger.Info("event received", "event_id", ev.ID, "event_type", ev.Type)
		return nil
	}
}
