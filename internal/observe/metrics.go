// Package observe provides server-side observability for Federkiel:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
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

// meterName is the instrumentation scope name used for all Federkiel metrics.
const meterName = "github.com/MrWong99/federkiel"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// StoryDuration tracks the latency of one full narrator turn, from
	// request to assembled reply.
	StoryDuration metric.Float64Histogram

	// ImageDuration tracks scene illustration generation latency.
	ImageDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// StoryTurns counts narrator turns. Use with attributes:
	//   attribute.String("mode", "stream"|"single"), attribute.String("status", ...)
	StoryTurns metric.Int64Counter

	// StreamDeltas counts text deltas delivered over the streaming endpoint.
	StreamDeltas metric.Int64Counter

	// AdventuresCompleted counts adventures the narrator marked as finished.
	AdventuresCompleted metric.Int64Counter

	// RateLimitRejections counts requests rejected by the rate limiter. Use
	// with attribute: attribute.String("path", ...)
	RateLimitRejections metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts upstream provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of story streams currently open.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Narrator
// turns run through a language model, so the upper buckets reach well past
// typical HTTP latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StoryDuration, err = m.Float64Histogram("federkiel.story.duration",
		metric.WithDescription("Latency of one full narrator turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ImageDuration, err = m.Float64Histogram("federkiel.image.duration",
		metric.WithDescription("Latency of scene illustration generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("federkiel.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.StoryTurns, err = m.Int64Counter("federkiel.story.turns",
		metric.WithDescription("Total narrator turns by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.StreamDeltas, err = m.Int64Counter("federkiel.stream.deltas",
		metric.WithDescription("Total text deltas delivered over the streaming endpoint."),
	); err != nil {
		return nil, err
	}
	if met.AdventuresCompleted, err = m.Int64Counter("federkiel.adventures.completed",
		metric.WithDescription("Total adventures marked as finished by the narrator."),
	); err != nil {
		return nil, err
	}
	if met.RateLimitRejections, err = m.Int64Counter("federkiel.ratelimit.rejections",
		metric.WithDescription("Total requests rejected by the rate limiter, by path."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("federkiel.provider.errors",
		metric.WithDescription("Total upstream provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("federkiel.active_streams",
		metric.WithDescription("Number of story streams currently open."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("federkiel.http.request.duration",
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

// RecordStoryTurn records one narrator turn with the standard attribute set.
func (m *Metrics) RecordStoryTurn(ctx context.Context, mode, status string) {
	m.StoryTurns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records one upstream provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordRateLimited records one request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited(ctx context.Context, path string) {
	m.RateLimitRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("path", path)),
	)
}
