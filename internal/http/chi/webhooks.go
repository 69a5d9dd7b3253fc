package chi

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/payhook/event"
	"github.com/marcelsud/payhook/event/signature"
	"github.com/marcelsud/payhook/metrics"
)

/* HTTP layer DTOs for the webhook endpoint
 * Separate from domain entities to avoid leaking internal structure
 */

// webhookResponse is the JSON body returned to the webhook provider
type webhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"eventId,omitempty"`
	Success   bool   `json:"success,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Warning   string `json:"warning,omitempty"`
	Error     string `json:"error,omitempty"`
}

// deadLetterResponse represents a dead letter record in the API
type deadLetterResponse struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason"`
	Attempts   int             `json:"attempts"`
	TraceID    string          `json:"trace_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

// WebhookConfig carries the entry point's per-deployment settings.
type WebhookConfig struct {
	Secret          string
	AllowedIPs      []string
	MaxPayloadBytes int64
	Tolerance       time.Duration
}

/* postStripeWebhook is the pipeline's HTTP entry point
 * Terminal on every path: rate limit -> IP allowlist -> size ceiling ->
 * signature -> idempotency -> processing. Retryable-looking failures still
 * answer 200 so the provider does not trigger redelivery storms; only
 * explicitly fatal errors surface a non-200 status
 */
func postStripeWebhook(svc event.UseCase, limiter *event.RateLimiter, recorder metrics.Recorder, cfg WebhookConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := uuid.New().String()
		w.Header().Set("X-Trace-Id", traceID)

		// 1. Rate limit: acknowledge but skip processing when exceeded
		if !limiter.Allow() {
			recorder.RecordRateLimited()
			respond(w, http.StatusOK, webhookResponse{
				Received: true,
				TraceID:  traceID,
				Warning:  "rate limited",
			})
			return
		}

		// 2. IP allowlist (empty allowlist = allow all)
		clientIP := clientIP(r)
		if !ipAllowed(clientIP, cfg.AllowedIPs) {
			respond(w, http.StatusForbidden, webhookResponse{
				Received: false,
				TraceID:  traceID,
				Error:    "ip not allowed",
			})
			return
		}

		// 3. Declared payload size, rejected before the body is parsed
		if r.ContentLength > cfg.MaxPayloadBytes {
			respond(w, http.StatusRequestEntityTooLarge, webhookResponse{
				Received: false,
				TraceID:  traceID,
				Error:    "payload too large",
			})
			return
		}

		// 4. Read raw body (bounded as a backstop) and verify the signature
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.MaxPayloadBytes))
		if err != nil {
			respond(w, http.StatusRequestEntityTooLarge, webhookResponse{
				Received: false,
				TraceID:  traceID,
				Error:    "payload too large",
			})
			return
		}
		defer r.Body.Close()

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			respond(w, http.StatusBadRequest, webhookResponse{
				Received: false,
				TraceID:  traceID,
				Error:    event.ErrMissingSignature.Error(),
			})
			return
		}

		ev, err := signature.ConstructEvent(body, sigHeader, cfg.Secret, cfg.Tolerance)
		if err != nil {
			respond(w, http.StatusUnauthorized, webhookResponse{
				Received: false,
				TraceID:  traceID,
				Error:    err.Error(),
			})
			return
		}

		// 5. Idempotency short circuit. A failed durable lookup is not fatal:
		// processing proceeds and dedup falls back to the in-flight map.
		processed, err := svc.IsProcessed(r.Context(), ev.ID)
		if err == nil && processed {
			recorder.RecordDuplicate(ev.Type)
			respond(w, http.StatusOK, webhookResponse{
				Received:  true,
				EventID:   ev.ID,
				TraceID:   traceID,
				Duplicate: true,
			})
			return
		}

		// 6. Process under per-event concurrency coordination
		pctx := event.NewProcessingContext(ev, traceID)
		pctx.Metadata["client_ip"] = clientIP
		pctx.Metadata["signature"] = truncate(sigHeader, 24)

		result, _ := svc.Handle(r.Context(), ev, pctx)

		w.Header().Set("X-Processing-Time-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))

		// 7./8. Fatal errors surface their status; everything else answers 200
		if !result.Success && result.Metadata["fatal"] == "true" {
			respond(w, http.StatusUnprocessableEntity, webhookResponse{
				Received: false,
				EventID:  ev.ID,
				TraceID:  traceID,
				Error:    result.Error,
			})
			return
		}

		respond(w, http.StatusOK, webhookResponse{
			Received: true,
			EventID:  ev.ID,
			Success:  result.Success,
			TraceID:  traceID,
			Error:    result.Error,
		})
	})
}

// getDeadLetters handles GET /api/webhooks/stripe/dead-letters
func getDeadLetters(svc event.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		entries, err := svc.DeadLetters(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		responses := make([]deadLetterResponse, 0, len(entries))
		for _, entry := range entries {
			payload := json.RawMessage(entry.Payload)
			if !json.Valid(payload) {
				payload = nil
			}
			responses = append(responses, deadLetterResponse{
				EventID:    entry.EventID,
				EventType:  entry.EventType,
				Payload:    payload,
				Reason:     entry.Reason,
				Attempts:   entry.Attempts,
				TraceID:    entry.TraceID,
				OccurredAt: entry.OccurredAt,
				CreatedAt:  entry.CreatedAt,
			})
		}

		respondJSON(w, http.StatusOK, responses)
	})
}

// postReplay handles POST /api/webhooks/stripe/replay/{event_id}
// Replay is external tooling territory; the endpoint is an explicit stub.
func postReplay() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotImplemented, map[string]string{
			"error": "replay not implemented",
		})
	})
}

// getStats handles GET /api/webhooks/stripe/stats
func getStats(collector metrics.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, collector.Snapshot())
	})
}

func respond(w http.ResponseWriter, status int, body webhookResponse) {
	respondJSON(w, status, body)
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already written; nothing left to do for the caller
		return
	}
}

// clientIP resolves the caller's address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ipAllowed(ip string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	for _, allowed := range allowlist {
		if ip == allowed {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
