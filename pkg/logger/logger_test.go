package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/abgdnv/catalog/pkg/web"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

func logEntry(t *testing.T, ctx context.Context) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")
	logger.InfoContext(ctx, "hello")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func Test_ContextHandler(t *testing.T) {
	tp := tracesdk.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	spanCtx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	testCases := []struct {
		name            string
		ctx             context.Context
		expectRequestID string
		expectTrace     bool
	}{
		{
			name: "Plain context",
			ctx:  context.Background(),
		},
		{
			name:            "Chi request id",
			ctx:             context.WithValue(context.Background(), middleware.RequestIDKey, "chi-1"),
			expectRequestID: "chi-1",
		},
		{
			name:            "Injected request id",
			ctx:             web.WithRequestID(context.Background(), "web-1"),
			expectRequestID: "web-1",
		},
		{
			name:        "Active span",
			ctx:         spanCtx,
			expectTrace: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			entry := logEntry(t, tc.ctx)

			// then
			assert.Equal(t, "test", entry["component"])
			if tc.expectRequestID != "" {
				assert.Equal(t, tc.expectRequestID, entry["request_id"])
			} else {
				assert.NotContains(t, entry, "request_id")
			}
			if tc.expectTrace {
				assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
				assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
			} else {
				assert.NotContains(t, entry, "trace_id")
			}
		})
	}
}
