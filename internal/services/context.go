package services

import "context"

type contextKey int

const (
	itemIDKey contextKey = iota
	stageKey
	requestIDKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithItemID tags ctx with the work item name, normally the disc title.
func WithItemID(ctx context.Context, id string) context.Context {
	return withValue(ctx, itemIDKey, id)
}

// ItemIDFromContext returns the work item name stored by WithItemID.
func ItemIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, itemIDKey) }

// WithStage tags ctx with the running pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, stageKey) }

// WithRequestID tags ctx with the run identifier recorded in history.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, requestIDKey) }
