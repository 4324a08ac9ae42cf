package logging

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"bookforge/internal/services"
)

type Attr = slog.Attr

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// ErrorKind tags err with its services marker name.
func ErrorKind(err error) Attr { return slog.String(FieldErrorKind, services.Kind(err)) }

// Elapsed reports time since start in milliseconds.
func Elapsed(start time.Time) Attr {
	return slog.Int64(FieldDurationMS, time.Since(start).Milliseconds())
}

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// kindHints maps services.Kind values to the operator's next step.
var kindHints = map[string]string{
	"prerequisite_missing": "an earlier stage produced no output; rerun the order",
	"transient_generation": "the generation service was unavailable; rerun the order later",
	"permanent_generation": "the model rejected or garbled the request; review the order input",
	"compositing":          "check the product spec and illustration rasters",
	"packaging":            "check output_dir permissions and storage settings",
	"validation":           "fix the order file or product catalog",
	"configuration":        "run bookforge config validate --online",
	"canceled":             "the run was interrupted; rerun the order",
}

// WarnWithContext logs a warning with enforced event_type, error_hint, and impact fields.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs, eventType)
	if !hasKey(attrs, FieldImpact) {
		attrs = append(attrs, String(FieldImpact, "run continues"))
	}
	logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

// ErrorWithContext logs an error with enforced event_type and error_hint
// fields. When attrs carry an error kind the hint is derived from it.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), slog.LevelError, msg, withDefaults(attrs, eventType)...)
}

func withDefaults(attrs []Attr, eventType string) []Attr {
	if !hasKey(attrs, FieldEventType) {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasKey(attrs, FieldErrorHint) {
		hint := "check the run log for details"
		if i := slices.IndexFunc(attrs, func(a Attr) bool { return a.Key == FieldErrorKind }); i >= 0 {
			if h, ok := kindHints[attrs[i].Value.String()]; ok {
				hint = h
			}
		}
		attrs = append(attrs, String(FieldErrorHint, hint))
	}
	return attrs
}

func hasKey(attrs []Attr, key string) bool {
	return slices.ContainsFunc(attrs, func(a Attr) bool { return a.Key == key })
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
