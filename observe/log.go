package observe

import (
	"context"
	"log/slog"
)

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, event Event) error {
	event.Normalize()

	level := slog.LevelDebug
	switch {
	case event.Status == StatusFailed:
		level = slog.LevelWarn
	case event.Kind == KindRun && event.Status == StatusCompleted:
		level = slog.LevelInfo
	}

	attrs := []slog.Attr{
		slog.String("kind", string(event.Kind)),
		slog.String("status", string(event.Status)),
	}
	if event.RunID != "" {
		attrs = append(attrs, slog.String("run_id", event.RunID))
	}
	if event.Flow != "" {
		attrs = append(attrs, slog.String("flow", event.Flow))
	}
	if event.Provider != "" {
		attrs = append(attrs, slog.String("provider", event.Provider))
	}
	if event.Model != "" {
		attrs = append(attrs, slog.String("model", event.Model))
	}
	if event.DurationMs > 0 {
		attrs = append(attrs, slog.Int64("duration_ms", event.DurationMs))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	msg := event.Message
	if msg == "" {
		msg = string(event.Kind) + " " + string(event.Status)
	}
	s.logger.LogAttrs(ctx, level, msg, attrs...)
	return nil
}
