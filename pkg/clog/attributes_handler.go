package clog

import (
	"context"
	"log/slog"
	"sort"
)

// runKeys lead every record in this order so log lines for one run line up.
var runKeys = []string{UserIDAttributeKey, OperationAttributeKey, RunIDAttributeKey}

// AttributesHandler appends the context attribute bag to every record.
type AttributesHandler struct {
	handler slog.Handler
}

func NewAttributesHandler(handler slog.Handler) *AttributesHandler {
	return &AttributesHandler{handler: handler}
}

func (h *AttributesHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *AttributesHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs := GetAttributes(ctx); len(attrs) > 0 {
		record.AddAttrs(orderedAttrs(attrs)...)
	}
	return h.handler.Handle(ctx, record)
}

func (h *AttributesHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AttributesHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *AttributesHandler) WithGroup(name string) slog.Handler {
	return &AttributesHandler{handler: h.handler.WithGroup(name)}
}

// orderedAttrs emits the run keys first, then the rest sorted by key.
func orderedAttrs(m map[string]any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(m))
	seen := make(map[string]bool, len(runKeys))
	for _, k := range runKeys {
		if v, ok := m[k]; ok {
			attrs = append(attrs, slog.Any(k, v))
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		attrs = append(attrs, slog.Any(k, m[k]))
	}
	return attrs
}
