package clog

import (
	"context"
	"maps"
	"sync"
)

// ctxSlog is a mutable attribute bag shared by everything holding the same
// context, so handlers deep in a call can enrich the final access log line.
type ctxSlog struct {
	mu         sync.RWMutex
	attributes map[string]any
}

type ctxSlogKey struct{}

func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxSlogKey{}, &ctxSlog{
		attributes: make(map[string]any),
	})
}

func fromContext(ctx context.Context) (*ctxSlog, bool) {
	l, ok := ctx.Value(ctxSlogKey{}).(*ctxSlog)
	return l, ok
}

func AddAttribute(ctx context.Context, key string, value any) {
	l, ok := fromContext(ctx)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attributes[key] = value
}

func AddAttributes(ctx context.Context, attributes map[string]any) {
	l, ok := fromContext(ctx)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	mergeMaps(l.attributes, attributes)
}

func GetAttribute[T any](ctx context.Context, key string) T {
	var zero T
	l, ok := fromContext(ctx)
	if !ok {
		return zero
	}
	l.mu.RLock()
	iVal, ok := l.attributes[key]
	l.mu.RUnlock()
	if !ok {
		return zero
	}
	v, ok := iVal.(T)
	if !ok {
		return zero
	}
	return v
}

func GetAttributes(ctx context.Context) map[string]any {
	l, ok := fromContext(ctx)
	if !ok {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.attributes)
}

func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		vMap, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		if dstMap, ok := dst[k].(map[string]any); ok {
			mergeMaps(dstMap, vMap)
		} else {
			dst[k] = vMap
		}
	}
}

const (
	ErrorAttributeKey     = "error.message"
	StackAttributeKey     = "error.stack"
	UserIDAttributeKey    = "user_id"
	OperationAttributeKey = "operation"
	RunIDAttributeKey     = "run_id"
)

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func GetError(ctx context.Context) error {
	return GetAttribute[error](ctx, ErrorAttributeKey)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}

func GetStack(ctx context.Context) string {
	return GetAttribute[string](ctx, StackAttributeKey)
}

// ContextWithRun starts a fresh attribute bag for a background run
// (prioritization or scheduling) that has no request to inherit one from.
// Attributes already present on ctx are carried over.
func ContextWithRun(ctx context.Context, userID, operation, runID string) context.Context {
	parent := GetAttributes(ctx)
	newCtx := ContextWithSlog(ctx)
	if parent != nil {
		AddAttributes(newCtx, parent)
	}
	AddAttributes(newCtx, map[string]any{
		UserIDAttributeKey:    userID,
		OperationAttributeKey: operation,
		RunIDAttributeKey:     runID,
	})
	return newCtx
}
