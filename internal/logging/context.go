package logging

import (
	"context"
	"log/slog"

	"spatialrip/internal/services"
)

// ContextFields returns the item, stage, and run identifier stored in ctx.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var fields []Attr
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, String(FieldItemID, id))
	}
	if st, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, String(FieldStage, st))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext tags logger with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
