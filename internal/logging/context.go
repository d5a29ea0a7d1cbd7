package logging

import (
	"context"
	"log/slog"
	"strings"
)

type contextKey string

const (
	runIDKey contextKey = "run_id"
	unitKey  contextKey = "unit"
)

// WithRunID stores a build run identifier on ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, strings.TrimSpace(id))
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithUnit stores the release unit being built on ctx.
func WithUnit(ctx context.Context, unit string) context.Context {
	return context.WithValue(ctx, unitKey, strings.TrimSpace(unit))
}

// UnitFromContext returns the unit stored by WithUnit.
func UnitFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	unit, ok := ctx.Value(unitKey).(string)
	return unit, ok && unit != ""
}

// ContextFields extracts the standard attributes carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	if unit, ok := UnitFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldUnit, unit))
	}
	return fields
}

// WithContext returns logger with the context fields attached.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

// contextHandler stamps records logged with a context carrying a run id,
// unless the logger already carries one.
type contextHandler struct {
	next     slog.Handler
	hasRunID bool
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.hasRunID {
		if id, ok := RunIDFromContext(ctx); ok {
			record.AddAttrs(slog.String(FieldCorrelationID, id))
		}
	}
	return h.next.Handle(ctx, record)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{next: h.next.WithAttrs(attrs), hasRunID: h.hasRunID || hasKey(attrs, FieldCorrelationID)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: h.next.WithGroup(name), hasRunID: h.hasRunID}
}
