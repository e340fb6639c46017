package studyapi

import (
	"context"
	"log/slog"
)

// CallEvent records metadata about a single API call, retries included.
type CallEvent struct {
	Method    string
	Path      string
	Status    int
	Attempts  int
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about API calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events to a slog logger.
type LogObserver struct {
	log *slog.Logger
}

func NewLogObserver(log *slog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) OnCallComplete(e CallEvent) {
	level := slog.LevelDebug
	if !e.Success {
		level = slog.LevelWarn
	}
	o.log.Log(context.Background(), level, "api_call",
		"method", e.Method,
		"path", e.Path,
		"status", e.Status,
		"attempts", e.Attempts,
		"latency_ms", e.LatencyMs,
		"success", e.Success,
		"error_code", e.ErrorCode,
	)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
