// Package telemetry integrates engine execution events with Clue tracing and
// metrics, the way runtime/agents/telemetry wires the agent runtime.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the engine host.
// Implementations typically delegate to Clue but the interface is
// intentionally small so tests can provide lightweight stubs.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers for instrumenting a
// Complete call: suspensions, faults, and interaction counts per trace.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so the host can remain agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
//
// Example usage:
//
//	ctx, span := tracer.Start(ctx, "trace.complete", trace.WithSpanKind(trace.SpanKindInternal))
//	defer span.End()
//	span.SetStatus(codes.Ok, "suspended")
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// CompleteTelemetry captures observability metadata collected around one
// Execution.Complete call, for hosts that want a single structured record
// rather than ad hoc Logger/Metrics calls scattered through the call site.
type CompleteTelemetry struct {
	// DurationMs is the wall-clock time spent inside Complete.
	DurationMs int64
	// TraceOffset identifies the top-level request this call advanced.
	TraceOffset int64
	// Suspended reports whether the call ended by suspending rather than
	// completing or faulting.
	Suspended bool
	// FaultKind is non-empty when Complete emitted an ErrorRaised message.
	FaultKind string
	// Extra holds host-specific metadata not captured by the common fields.
	Extra map[string]any
}
