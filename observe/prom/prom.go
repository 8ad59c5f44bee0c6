// Package prom records kickoff runs as Prometheus metrics.
package prom

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/PipeOpsHQ/agent-kickoff/observe"
)

// Sink implements observe.Sink by updating run and provider collectors.
type Sink struct {
	runs             *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	tokens           *prometheus.CounterVec
}

// NewSink registers its collectors with reg. A nil reg uses a fresh private
// registry, which keeps tests isolated from the default registerer.
func NewSink(reg prometheus.Registerer) (*Sink, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Sink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kickoff_runs_total",
			Help: "Total number of single-step runs by flow and outcome.",
		}, []string{"flow", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kickoff_run_duration_seconds",
			Help:    "Wall time of single-step runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kickoff_provider_calls_total",
			Help: "Outbound completion calls by provider and outcome.",
		}, []string{"provider", "status"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kickoff_provider_call_duration_seconds",
			Help:    "Latency of outbound completion calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kickoff_tokens_total",
			Help: "Tokens reported by completion providers.",
		}, []string{"provider", "direction"}),
	}
	for _, c := range []prometheus.Collector{s.runs, s.runDuration, s.providerCalls, s.providerDuration, s.tokens} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Sink) Emit(_ context.Context, event observe.Event) error {
	if event.Status == observe.StatusStarted {
		return nil
	}
	seconds := float64(event.DurationMs) / 1000

	switch event.Kind {
	case observe.KindRun:
		s.runs.WithLabelValues(event.Flow, string(event.Status)).Inc()
		s.runDuration.WithLabelValues(event.Flow).Observe(seconds)
	case observe.KindProvider:
		s.providerCalls.WithLabelValues(event.Provider, string(event.Status)).Inc()
		s.providerDuration.WithLabelValues(event.Provider).Observe(seconds)
		if n, ok := event.Attributes["inputTokens"].(int); ok && n > 0 {
			s.tokens.WithLabelValues(event.Provider, "input").Add(float64(n))
		}
		if n, ok := event.Attributes["outputTokens"].(int); ok && n > 0 {
			s.tokens.WithLabelValues(event.Provider, "output").Add(float64(n))
		}
	}
	return nil
}
