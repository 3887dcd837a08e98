// Package observe provides application-wide observability primitives for
// PhenoGraph: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all PhenoGraph
// metrics.
const meterName = "github.com/openpheno/phenograph"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// AnalysisDuration tracks one-shot screening latency end to end,
	// including any fallback retry.
	AnalysisDuration metric.Float64Histogram

	// --- Counters ---

	// ModelRequests counts inference API calls. Use with attributes:
	//   attribute.String("model", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ModelRequests metric.Int64Counter

	// ModelErrors counts inference errors. Use with attributes:
	//   attribute.String("model", ...), attribute.String("kind", ...)
	ModelErrors metric.Int64Counter

	// LiveEvents counts realtime session events. Use with attribute:
	//   attribute.String("event", ...) — e.g. "interrupted", "turn_complete".
	LiveEvents metric.Int64Counter

	// DroppedFrames counts capture frames discarded because the uplink
	// could not keep up.
	DroppedFrames metric.Int64Counter

	// RiskAlerts counts emergency keywords detected in live transcripts.
	RiskAlerts metric.Int64Counter

	// QuotaBackoffs counts self-training runs deferred by rate limiting.
	QuotaBackoffs metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live screening sessions.
	ActiveSessions metric.Int64UpDownCounter

	// PlaybackQueueDepth tracks the number of audio chunks queued for
	// playback.
	PlaybackQueueDepth metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// analysisBuckets defines histogram bucket boundaries (in seconds) sized for
// multimodal inference round trips, which run far longer than typical HTTP
// handlers.
var analysisBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AnalysisDuration, err = m.Float64Histogram("phenograph.analysis.duration",
		metric.WithDescription("Latency of one-shot screening analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ModelRequests, err = m.Int64Counter("phenograph.model.requests",
		metric.WithDescription("Total inference API requests by model, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ModelErrors, err = m.Int64Counter("phenograph.model.errors",
		metric.WithDescription("Total inference errors by model and kind."),
	); err != nil {
		return nil, err
	}
	if met.LiveEvents, err = m.Int64Counter("phenograph.live.events",
		metric.WithDescription("Total realtime session events by event type."),
	); err != nil {
		return nil, err
	}
	if met.DroppedFrames, err = m.Int64Counter("phenograph.capture.dropped_frames",
		metric.WithDescription("Total capture frames dropped under backpressure."),
	); err != nil {
		return nil, err
	}
	if met.RiskAlerts, err = m.Int64Counter("phenograph.risk.alerts",
		metric.WithDescription("Total emergency keywords detected in live transcripts."),
	); err != nil {
		return nil, err
	}
	if met.QuotaBackoffs, err = m.Int64Counter("phenograph.trainer.quota_backoffs",
		metric.WithDescription("Total self-training runs deferred by rate limiting."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("phenograph.live.active_sessions",
		metric.WithDescription("Number of live screening sessions."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackQueueDepth, err = m.Int64UpDownCounter("phenograph.playback.queue_depth",
		metric.WithDescription("Number of audio chunks queued for playback."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("phenograph.http.request.duration",
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordModelRequest records an inference request counter increment with the
// standard attribute set.
func (m *Metrics) RecordModelRequest(ctx context.Context, model, kind, status string) {
	m.ModelRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordModelError records an inference error counter increment.
func (m *Metrics) RecordModelError(ctx context.Context, model, kind string) {
	m.ModelErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("kind", kind),
		),
	)
}

// RecordLiveEvent records a realtime session event counter increment.
func (m *Metrics) RecordLiveEvent(ctx context.Context, event string) {
	m.LiveEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event", event)),
	)
}
