package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesRoundTrip(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "a", 1)
	AddAttributes(ctx, map[string]any{"nested": map[string]any{"x": "y"}})
	AddAttributes(ctx, map[string]any{"nested": map[string]any{"z": "w"}})

	assert.Equal(t, 1, GetAttribute[int](ctx, "a"))
	assert.Equal(t, "", GetAttribute[string](ctx, "a"))
	assert.Equal(t, map[string]any{"x": "y", "z": "w"}, GetAttributes(ctx)["nested"])

	// Without a bag nothing panics.
	AddAttribute(context.Background(), "a", 1)
	assert.Nil(t, GetAttributes(context.Background()))
}

func TestContextWithRunInheritsParent(t *testing.T) {
	parent := ContextWithSlog(context.Background())
	AddAttribute(parent, "procedure", "/x")

	ctx := ContextWithRun(parent, "u1", "prioritize", "r1")
	AddAttribute(ctx, "extra", true)

	attrs := GetAttributes(ctx)
	assert.Equal(t, "/x", attrs["procedure"])
	assert.Equal(t, "u1", attrs[UserIDAttributeKey])
	assert.Equal(t, "prioritize", attrs[OperationAttributeKey])
	assert.Equal(t, "r1", attrs[RunIDAttributeKey])
	_, leaked := GetAttributes(parent)["extra"]
	assert.False(t, leaked)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestConnectCodeToLevel(t *testing.T) {
	assert.Equal(t, LevelInfo, ConnectCodeToLevel(connect.CodeAborted))
	assert.Equal(t, LevelError, ConnectCodeToLevel(connect.CodeUnavailable))
	assert.Equal(t, LevelWarn, HTTPStatusToLevel(http.StatusNotFound))
}

func TestTextHandler(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewAttributesHandler(NewTextHandler(buf, WithColor(false), WithLevel(slog.LevelDebug))))
	ctx := ContextWithRun(context.Background(), "u1", "schedule", "r1")
	logger.InfoContext(ctx, "run finished", "assigned", 3)

	out := buf.String()
	assert.Contains(t, out, "INFO u1 schedule run finished")
	assert.Contains(t, out, "    assigned=3\n")
	assert.Contains(t, out, "    run_id=r1\n")
}

func TestNewLoggerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(buf, "production", slog.LevelInfo)
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, UserIDAttributeKey, "u1")
	logger.DebugContext(ctx, "hidden")
	logger.InfoContext(ctx, "shown")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "u1", rec["user_id"])
}

func TestSlogChiMiddleware(t *testing.T) {
	var seen map[string]any
	h := SlogChiMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddAttribute(r.Context(), "handled", true)
		seen = GetAttributes(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fingerprint", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/api/fingerprint", seen["path"])
	assert.Equal(t, true, seen["handled"])
}

func TestAttributesHandlerOrdersKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := ContextWithRun(ContextWithSlog(context.Background()), "u1", "schedule", "r1")
	AddAttributes(ctx, map[string]any{"zeta": 1, "alpha": 2, "mid": 3})

	for range 5 {
		buf.Reset()
		logger.InfoContext(ctx, "placed")
		line := buf.String()
		order := []string{`"user_id"`, `"operation"`, `"run_id"`, `"alpha"`, `"mid"`, `"zeta"`}
		last := -1
		for _, key := range order {
			idx := bytes.Index([]byte(line), []byte(key))
			require.GreaterOrEqual(t, idx, 0, key)
			assert.Greater(t, idx, last, key)
			last = idx
		}
	}
}
