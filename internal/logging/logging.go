// Package logging wraps log/slog with structured helpers specific to the
// middleware's own events, mirroring the registry-specific Logger wrapper
// pattern used elsewhere in this codebase.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a *slog.Logger at the given level string ("debug", "info",
// "warn", "error"; case-insensitive, defaults to info). When format is
// "json" the handler emits structured JSON to stdout; any other value
// (including empty) uses a human-readable text handler.
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger adds domain-specific structured helper methods over a
// *slog.Logger, the way a registry logs blob/manifest operations.
type Logger struct {
	*slog.Logger
}

// Wrap adapts a *slog.Logger into a Logger.
func Wrap(l *slog.Logger) *Logger {
	return &Logger{Logger: l}
}

// JobEvent logs a canonical status emission for a job.
func (l *Logger) JobEvent(jobID, workflowID, siteName, status string) {
	l.Info("job status",
		slog.String("job_id", jobID),
		slog.String("workflow_id", workflowID),
		slog.String("site", siteName),
		slog.String("status", status),
	)
}

// TriggerFired logs a satisfied trigger dispatching a new job.
func (l *Logger) TriggerFired(eventID, eventType, fireJobID, fireSite string) {
	l.Info("trigger fired",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.String("fire_job_id", fireJobID),
		slog.String("fire_site", fireSite),
	)
}

// DispatchFailed logs a dispatch failure attributed to a pre-allocated
// job id, the failure mode named in §7.
func (l *Logger) DispatchFailed(fireJobID, fireSite string, err error) {
	l.Error("dispatch failed",
		slog.String("fire_job_id", fireJobID),
		slog.String("fire_site", fireSite),
		slog.String("error", err.Error()),
	)
}

// StoreRetry logs a transient-storage retry.
func (l *Logger) StoreRetry(op string, attempt int, err error) {
	l.Warn("store retry",
		slog.String("op", op),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// EventEvalFailed logs a per-event evaluation failure that leaves the
// event in place for retry on the next cycle, per §7.
func (l *Logger) EventEvalFailed(eventID string, err error) {
	l.Error("event evaluation failed",
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}
