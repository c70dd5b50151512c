package synckit

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span attribute keys.
const (
	AttrRunID        = attribute.Key("readsync.run_id")
	AttrStage        = attribute.Key("readsync.stage")
	AttrStrategy     = attribute.Key("readsync.strategy")
	AttrSourceCount  = attribute.Key("readsync.source.count")
	AttrTargetCount  = attribute.Key("readsync.target.count")
	AttrChangeCount  = attribute.Key("readsync.change.count")
	AttrConflicts    = attribute.Key("readsync.conflict.count")
	AttrRetryCount   = attribute.Key("readsync.retry.count")
	AttrSynchronized = attribute.Key("readsync.synchronized")
)

// startSpan returns a no-op span when tracing is disabled, leaving any span
// already in ctx untouched.
func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// recordError marks span as failed. The status text stays generic; details
// are in the recorded event.
func recordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
