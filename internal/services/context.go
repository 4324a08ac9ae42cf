package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	orderIDKey   contextKey = "order_id"
	stageKey     contextKey = "stage"
	spreadKey    contextKey = "spread"
	requestIDKey contextKey = "request_id"
)

// WithRunID annotates context with the production run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the production run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOrderID annotates context with the order identifier.
func WithOrderID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, orderIDKey, id)
}

// OrderIDFromContext returns the order identifier if present.
func OrderIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(orderIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the workflow stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithSpread annotates context with the 1-based spread number being rendered.
func WithSpread(ctx context.Context, spread int) context.Context {
	if spread <= 0 {
		return ctx
	}
	return context.WithValue(ctx, spreadKey, spread)
}

// SpreadFromContext returns the spread number if present.
func SpreadFromContext(ctx context.Context) (int, bool) {
	if v, ok := ctx.Value(spreadKey).(int); ok && v > 0 {
		return v, true
	}
	return 0, false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
