package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/payhook/event"
	"github.com/marcelsud/payhook/metrics"
)

// Handlers sets up the webhook API routes
func Handlers(ctx context.Context, svc event.UseCase, limiter *event.RateLimiter, collector metrics.Collector, exporter *metrics.OTelExporter, cfg WebhookConfig) *chi.Mux {
	logger := httplog.NewLogger("payhook-api", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Prometheus metrics
	if exporter != nil {
		r.Method(http.MethodGet, "/metrics", exporter.ServeHTTP())
	}

	// Webhook API routes
	r.Route("/api/webhooks/stripe", func(r chi.Router) {
		// Inbound provider deliveries
		r.Post("/", postStripeWebhook(svc, limiter, collector, cfg).ServeHTTP)

		// Operator surface
		r.Get("/dead-letters", getDeadLetters(svc).ServeHTTP)
		r.Post("/replay/{event_id}", postReplay().ServeHTTP)
		r.Get("/stats", getStats(collector).ServeHTTP)
	})

	return r
}
