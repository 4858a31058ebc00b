package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "paydocs/internal/core/context"
	"paydocs/internal/core/id"
)

func observed(t *testing.T) (context.Context, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return WithLogger(context.Background(), &Logger{zap.New(core).Sugar()}), logs
}

func TestScopeFields(t *testing.T) {
	docID, orderID := id.New(), id.New()

	tests := []struct {
		name  string
		scope func(context.Context) context.Context
		want  map[string]any
		none  []string
	}{
		{
			name:  "unscoped",
			scope: func(ctx context.Context) context.Context { return ctx },
			none:  []string{"document_id", "order_id", "job", "user_id", "trace_id"},
		},
		{
			name: "document inside job",
			scope: func(ctx context.Context) context.Context {
				return WithDocument(WithJob(ctx, "expire_documents"), docID)
			},
			want: map[string]any{"document_id": docID.String(), "job": "expire_documents"},
			none: []string{"order_id"},
		},
		{
			name: "order then document keeps both",
			scope: func(ctx context.Context) context.Context {
				return WithDocument(WithOrder(ctx, orderID), docID)
			},
			want: map[string]any{"document_id": docID.String(), "order_id": orderID.String()},
		},
		{
			name: "user and trace",
			scope: func(ctx context.Context) context.Context {
				ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "u-1"})
				return appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
			},
			want: map[string]any{"user_id": "u-1", "trace_id": "t-1", "request_id": "r-1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, logs := observed(t)
			Info(tt.scope(ctx), "payment document state changed", "to", "open")

			entries := logs.All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, "open", fields["to"])
			for k, v := range tt.want {
				assert.Equal(t, v, stringify(fields[k]), k)
			}
			for _, k := range tt.none {
				assert.NotContains(t, fields, k)
			}
		})
	}
}

func TestScopeDoesNotLeakToParent(t *testing.T) {
	ctx, logs := observed(t)
	_ = WithDocument(ctx, id.New())

	Warn(ctx, "expiration skipped")
	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "document_id")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "not-a-level", Service: "paydocs-worker", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
}

// stringify renders ids the way the JSON encoder would.
func stringify(v any) any {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return v
}
