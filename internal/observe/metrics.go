// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics with a Prometheus exporter bridge so the
// standard /metrics endpoint keeps working.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is
// provided for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all bot metrics.
const meterName = "github.com/roshanbot/roshan"

// Metrics holds all OpenTelemetry metric instruments for the bot. All
// fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// meter creates the late-bound observable instruments
	// ([Metrics.RegisterCaptureGauges]).
	meter metric.Meter

	// Commands counts chat command dispatches. Recorded by the router
	// on every recognized command. Use with attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	Commands metric.Int64Counter

	// ClipExports counts clip export attempts. Use with attribute:
	//   attribute.String("status", ...): ok, cooldown, no_audio, error
	ClipExports metric.Int64Counter

	// ClipExportDuration tracks the wall time of one clip export,
	// including all ffmpeg encodes.
	ClipExportDuration metric.Float64Histogram

	// ProviderRequests counts external API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time on the
	// health endpoints. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) wide
// enough for multi-track ffmpeg encodes.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the
// given [metric.MeterProvider]. Returns an error if any instrument
// creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	if met.Commands, err = m.Int64Counter("roshan.commands",
		metric.WithDescription("Total chat command dispatches by command and status."),
	); err != nil {
		return nil, err
	}
	if met.ClipExports, err = m.Int64Counter("roshan.clip.exports",
		metric.WithDescription("Total clip export attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.ClipExportDuration, err = m.Float64Histogram("roshan.clip.export.duration",
		metric.WithDescription("Wall time of one clip export including encoding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("roshan.provider.requests",
		metric.WithDescription("Total external API requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("roshan.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating
// it on first call using [otel.GetMeterProvider]. Subsequent calls
// return the same pointer. Panics if instrument creation fails (should
// not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// CaptureSource provides live capture readings for the observable
// gauges. Implemented by capture.Tracker.
type CaptureSource interface {
	TrackedUsers() int
	BufferedBytes() int
}

// RegisterCaptureGauges registers observable gauges that read the
// capture buffer state from src on every scrape, so the values stay
// exact without per-frame counter updates on the hot path.
func (m *Metrics) RegisterCaptureGauges(src CaptureSource) error {
	speakers, err := m.meter.Int64ObservableGauge("roshan.capture.active_speakers",
		metric.WithDescription("Users with buffered capture audio."),
	)
	if err != nil {
		return err
	}
	buffered, err := m.meter.Int64ObservableGauge("roshan.capture.buffered_bytes",
		metric.WithDescription("PCM bytes held in the capture buffer."),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(speakers, int64(src.TrackedUsers()))
		o.ObserveInt64(buffered, int64(src.BufferedBytes()))
		return nil
	}, speakers, buffered)
	return err
}

// Attr is a convenience alias for [attribute.String] to reduce
// verbosity at call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommand records one command dispatch with the standard
// attribute set.
func (m *Metrics) RecordCommand(ctx context.Context, command, status string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
		),
	)
}

// RecordClipExport records one export attempt and, for successful
// exports, its duration in seconds.
func (m *Metrics) RecordClipExport(ctx context.Context, status string, seconds float64) {
	m.ClipExports.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	if seconds > 0 {
		m.ClipExportDuration.Record(ctx, seconds)
	}
}

// RecordProviderRequest records one external API call with the standard
// attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}
