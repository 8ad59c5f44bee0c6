// Package otel bridges the observe.Sink to OpenTelemetry tracing.
//
// Each observe.Event becomes one span, parented on whatever span the
// emitting context carries, so a kickoff run shows up under the inbound
// HTTP request span in any OpenTelemetry-compatible backend.
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/PipeOpsHQ/agent-kickoff/observe"
)

const instrumentationName = "github.com/PipeOpsHQ/agent-kickoff"

// Sink implements observe.Sink by emitting OpenTelemetry spans.
type Sink struct {
	tracer trace.Tracer
}

// NewSink creates an OTel sink using the given TracerProvider.
// If tp is nil, it uses a noop tracer provider.
func NewSink(tp trace.TracerProvider) *Sink {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Sink{
		tracer: tp.Tracer(instrumentationName),
	}
}

// Emit converts an observe.Event into a span. Started events are skipped;
// the matching completed or failed event carries the duration.
func (s *Sink) Emit(ctx context.Context, event observe.Event) error {
	event.Normalize()
	if event.Status == observe.StatusStarted {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	endTime := event.Timestamp
	startTime := endTime
	if event.DurationMs > 0 {
		startTime = endTime.Add(-time.Duration(event.DurationMs) * time.Millisecond)
	}

	_, span := s.tracer.Start(ctx, spanNameFor(event), trace.WithTimestamp(startTime))

	attrs := []attribute.KeyValue{
		attribute.String("kickoff.event.kind", string(event.Kind)),
	}
	if event.RunID != "" {
		attrs = append(attrs, attribute.String("kickoff.run.id", event.RunID))
	}
	if event.Flow != "" {
		attrs = append(attrs, attribute.String("kickoff.flow", event.Flow))
	}
	if event.Provider != "" {
		attrs = append(attrs, attribute.String("gen_ai.system", event.Provider))
	}
	if event.Model != "" {
		attrs = append(attrs, attribute.String("gen_ai.request.model", event.Model))
	}
	if event.Status != "" {
		attrs = append(attrs, attribute.String("kickoff.status", string(event.Status)))
	}
	if event.DurationMs > 0 {
		attrs = append(attrs, attribute.Int64("kickoff.duration_ms", event.DurationMs))
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, attribute.String("kickoff.attr."+k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)

	if event.Status == observe.StatusFailed {
		span.SetStatus(codes.Error, event.Error)
		if event.Error != "" {
			span.RecordError(fmt.Errorf("%s", event.Error))
		}
	} else if event.Status == observe.StatusCompleted {
		span.SetStatus(codes.Ok, "")
	}

	span.End(trace.WithTimestamp(endTime))
	return nil
}

func spanNameFor(event observe.Event) string {
	switch event.Kind {
	case observe.KindRun:
		if event.Flow != "" {
			return "kickoff.run." + event.Flow
		}
		return "kickoff.run"
	case observe.KindProvider:
		if event.Provider != "" {
			return "kickoff.llm." + event.Provider
		}
		return "kickoff.llm.complete"
	default:
		if event.Name != "" {
			return "kickoff." + event.Name
		}
		return "kickoff.event"
	}
}
