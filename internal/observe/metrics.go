// Package observe provides application-wide observability primitives for
// cicerone: OpenTelemetry metrics, distributed tracing, structured logging,
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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all cicerone metrics.
const meterName = "github.com/cicerone-ai/cicerone"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ConnectDuration tracks the time from session start to a ready agent
	// connection.
	ConnectDuration metric.Float64Histogram

	// ToolDispatchDuration tracks tool invocation handling latency, from
	// batch receipt to result sent.
	ToolDispatchDuration metric.Float64Histogram

	// --- Counters ---

	// SessionStarts counts session start attempts. Use with attribute:
	//   attribute.String("status", "ok"|"device"|"handshake")
	SessionStarts metric.Int64Counter

	// FramesSent counts capture frames delivered to the agent.
	FramesSent metric.Int64Counter

	// ChunksScheduled counts playback buffers queued for output.
	ChunksScheduled metric.Int64Counter

	// ChunksDropped counts inbound audio chunks skipped as malformed.
	ChunksDropped metric.Int64Counter

	// Interruptions counts barge-ins that flushed the playback queue.
	Interruptions metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// TurnCommits counts committed conversation messages. Use with attribute:
	//   attribute.String("role", "user"|"agent")
	TurnCommits metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for conversational latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ConnectDuration, err = m.Float64Histogram("cicerone.session.connect.duration",
		metric.WithDescription("Time from session start to a ready agent connection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolDispatchDuration, err = m.Float64Histogram("cicerone.tool.dispatch.duration",
		metric.WithDescription("Tool invocation handling latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SessionStarts, err = m.Int64Counter("cicerone.session.starts",
		metric.WithDescription("Total session start attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.FramesSent, err = m.Int64Counter("cicerone.capture.frames_sent",
		metric.WithDescription("Total capture frames delivered to the agent."),
	); err != nil {
		return nil, err
	}
	if met.ChunksScheduled, err = m.Int64Counter("cicerone.playback.chunks_scheduled",
		metric.WithDescription("Total playback buffers queued for output."),
	); err != nil {
		return nil, err
	}
	if met.ChunksDropped, err = m.Int64Counter("cicerone.playback.chunks_dropped",
		metric.WithDescription("Total inbound audio chunks skipped as malformed."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("cicerone.session.interruptions",
		metric.WithDescription("Total barge-ins that flushed the playback queue."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("cicerone.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.TurnCommits, err = m.Int64Counter("cicerone.turns.commits",
		metric.WithDescription("Total committed conversation messages by role."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("cicerone.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("cicerone.http.request.duration",
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

// RecordSessionStart records a session start attempt with its outcome.
func (m *Metrics) RecordSessionStart(ctx context.Context, status string) {
	m.SessionStarts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordToolCall records a tool call counter increment with the standard
// attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordToolDispatch records the handling time of one tool invocation.
func (m *Metrics) RecordToolDispatch(ctx context.Context, tool string, elapsed time.Duration) {
	m.ToolDispatchDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("tool", tool)),
	)
}

// RecordTurnCommit records a committed conversation message.
func (m *Metrics) RecordTurnCommit(ctx context.Context, role string) {
	m.TurnCommits.Add(ctx, 1,
		metric.WithAttributes(attribute.String("role", role)),
	)
}
