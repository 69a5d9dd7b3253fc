package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector

	// OTel meters and instruments
	meter          metric.Meter
	outcomeCounter metric.Int64ObservableCounter
	skippedCounter metric.Int64ObservableCounter
	retryCounter   metric.Int64ObservableCounter
	dlqCounter     metric.Int64ObservableCounter
	successGauge   metric.Float64ObservableGauge
	durationGauge  metric.Float64ObservableGauge
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	// Create Prometheus exporter
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"payhook",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		meter:         meter,
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	// Processing outcomes per event type
	oe.outcomeCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.events.processed",
		metric.WithDescription("Number of processed webhook events by type and outcome"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeOutcomes),
	)
	if err != nil {
		return fmt.Errorf("creating outcome counter: %w", err)
	}

	// Deliveries acknowledged but not processed (duplicates, rate limited)
	oe.skippedCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.events.skipped",
		metric.WithDescription("Number of deliveries acknowledged without processing"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeSkipped),
	)
	if err != nil {
		return fmt.Errorf("creating skipped counter: %w", err)
	}

	// Retry attempts
	oe.retryCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.events.retries",
		metric.WithDescription("Number of retry attempts"),
		metric.WithUnit("{attempts}"),
		metric.WithInt64Callback(oe.observeRetries),
	)
	if err != nil {
		return fmt.Errorf("creating retry counter: %w", err)
	}

	// Dead lettered events
	oe.dlqCounter, err = oe.meter.Int64ObservableCounter(
		"webhook.events.dead_lettered",
		metric.WithDescription("Number of events forwarded to the dead letter sink"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeDeadLettered),
	)
	if err != nil {
		return fmt.Errorf("creating dead letter counter: %w", err)
	}

	// Success rate over the process lifetime
	oe.successGauge, err = oe.meter.Float64ObservableGauge(
		"webhook.processing.success_rate",
		metric.WithDescription("Fraction of processing attempts that succeeded"),
		metric.WithUnit("1"),
		metric.WithFloat64Callback(oe.observeSuccessRate),
	)
	if err != nil {
		return fmt.Errorf("creating success rate gauge: %w", err)
	}

	// Average processing duration
	oe.durationGauge, err = oe.meter.Float64ObservableGauge(
		"webhook.processing.duration_avg",
		metric.WithDescription("Average processing duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithFloat64Callback(oe.observeAvgDuration),
	)
	if err != nil {
		return fmt.Errorf("creating duration gauge: %w", err)
	}

	return nil
}

// observeOutcomes is a callback that reports per-type outcome counts
func (oe *OTelExporter) observeOutcomes(ctx context.Context, observer metric.Int64Observer) error {
	snap := oe.collector.Snapshot()

	for eventType, stats := range snap.PerType {
		observer.Observe(stats.Succeeded, metric.WithAttributes(
			attribute.String("event.type", eventType),
			attribute.String("outcome", "success"),
		))
		observer.Observe(stats.Failed, metric.WithAttributes(
			attribute.String("event.type", eventType),
			attribute.String("outcome", "failure"),
		))
	}

	return nil
}

// observeSkipped is a callback that reports duplicate and rate-limited counts
func (oe *OTelExporter) observeSkipped(ctx context.Context, observer metric.Int64Observer) error {
	snap := oe.collector.Snapshot()

	observer.Observe(snap.Duplicates, metric.WithAttributes(
		attribute.String("reason", "duplicate"),
	))
	observer.Observe(snap.RateLimited, metric.WithAttributes(
		attribute.String("reason", "rate_limited"),
	))

	return nil
}

// observeRetries is a callback that reports retry attempt counts per type
func (oe *OTelExporter) observeRetries(ctx context.Context, observer metric.Int64Observer) error {
	snap := oe.collector.Snapshot()

	for eventType, stats := range snap.PerType {
		if stats.Retries == 0 {
			continue
		}
		observer.Observe(stats.Retries, metric.WithAttributes(
			attribute.String("event.type", eventType),
		))
	}

	return nil
}

// observeDeadLettered is a callback that reports dead letter counts
func (oe *OTelExporter) observeDeadLettered(ctx context.Context, observer metric.Int64Observer) error {
	observer.Observe(oe.collector.Snapshot().DeadLettered)
	return nil
}

// observeSuccessRate is a callback that reports the lifetime success rate
func (oe *OTelExporter) observeSuccessRate(ctx context.Context, observer metric.Float64Observer) error {
	observer.Observe(oe.collector.Snapshot().SuccessRate)
	return nil
}

// observeAvgDuration is a callback that reports the average attempt duration
func (oe *OTelExporter) observeAvgDuration(ctx context.Context, observer metric.Float64Observer) error {
	observer.Observe(oe.collector.Snapshot().AvgDurationMs)
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
