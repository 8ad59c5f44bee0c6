package prom

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/PipeOpsHQ/agent-kickoff/observe"
)

func TestSinkCountsRunsAndProviderCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewSink(reg)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	ctx := context.Background()

	events := []observe.Event{
		{Kind: observe.KindRun, Status: observe.StatusStarted, Flow: "simple"},
		{Kind: observe.KindProvider, Status: observe.StatusCompleted, Provider: "gemini", DurationMs: 20,
			Attributes: map[string]any{"inputTokens": 12, "outputTokens": 3}},
		{Kind: observe.KindRun, Status: observe.StatusCompleted, Flow: "simple", DurationMs: 25},
		{Kind: observe.KindProvider, Status: observe.StatusFailed, Provider: "gemini"},
		{Kind: observe.KindRun, Status: observe.StatusFailed, Flow: "simple"},
	}
	for _, e := range events {
		if err := sink.Emit(ctx, e); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}

	if got := testutil.ToFloat64(sink.runs.WithLabelValues("simple", "completed")); got != 1 {
		t.Fatalf("completed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.runs.WithLabelValues("simple", "failed")); got != 1 {
		t.Fatalf("failed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.providerCalls.WithLabelValues("gemini", "completed")); got != 1 {
		t.Fatalf("provider calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.tokens.WithLabelValues("gemini", "input")); got != 12 {
		t.Fatalf("input tokens = %v, want 12", got)
	}
	if got := testutil.ToFloat64(sink.tokens.WithLabelValues("gemini", "output")); got != 3 {
		t.Fatalf("output tokens = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(sink.runDuration); n != 1 {
		t.Fatalf("expected one run duration series, got %d", n)
	}
}

func TestNewSink_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewSink(reg); err != nil {
		t.Fatalf("first NewSink failed: %v", err)
	}
	if _, err := NewSink(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
