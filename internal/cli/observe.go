package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/PipeOpsHQ/agent-kickoff/internal/telemetry"
	"github.com/PipeOpsHQ/agent-kickoff/observe"
	otelsink "github.com/PipeOpsHQ/agent-kickoff/observe/otel"
	promsink "github.com/PipeOpsHQ/agent-kickoff/observe/prom"
)

type observability struct {
	sink     observe.Sink
	registry *prometheus.Registry
	shutdown telemetry.ShutdownFunc
}

// setupObservability fans run events out to the log, and to tracing and
// metrics when enabled. registry is nil unless metrics are requested.
func (a *app) setupObservability(ctx context.Context, metrics bool) (*observability, error) {
	shutdown, err := telemetry.Setup(ctx, a.cfg.OTelEnabled, Version)
	if err != nil {
		return nil, err
	}
	out := &observability{shutdown: shutdown}
	sinks := []observe.Sink{observe.NewLogSink(a.logger)}
	if a.cfg.OTelEnabled {
		sinks = append(sinks, otelsink.NewSink(otel.GetTracerProvider()))
	}
	if metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		ps, err := promsink.NewSink(reg)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		sinks = append(sinks, ps)
		out.registry = reg
	}
	out.sink = observe.NewMultiSink(sinks...)
	return out, nil
}
