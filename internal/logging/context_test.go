package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestContextFields_EmptyContext(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}

func TestContextFields_OTELTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithBatcher(exporter))
	tracer := provider.Tracer("test")

	ctx, span := tracer.Start(context.Background(), "test-operation")
	defer span.End()

	fields := ContextFields(ctx)

	var hasTraceID, hasSpanID bool
	for _, f := range fields {
		if f.Key == "trace_id" {
			hasTraceID = true
			assert.NotEmpty(t, f.String)
		}
		if f.Key == "span_id" {
			hasSpanID = true
			assert.NotEmpty(t, f.String)
		}
	}
	assert.True(t, hasTraceID, "trace_id field missing")
	assert.True(t, hasSpanID, "span_id field missing")
}

func TestContextFields_ProtocolCorrelation(t *testing.T) {
	ctx := WithPhase(context.Background(), "CompositionAudit")
	ctx = WithTick(ctx, 17)
	ctx = WithDecisionID(ctx, "constraint_004")
	ctx = WithQueryID(ctx, "9f0c2c1e-ea07-4f3a-8a43-aa0f64b6c7a1")

	fields := ContextFields(ctx)
	assertFieldExists(t, fields, "phase", "CompositionAudit")
	assertFieldExists(t, fields, "decision.id", "constraint_004")
	assertFieldExists(t, fields, "query.id", "9f0c2c1e-ea07-4f3a-8a43-aa0f64b6c7a1")

	var tick *zap.Field
	for i := range fields {
		if fields[i].Key == "tick" {
			tick = &fields[i]
		}
	}
	require.NotNil(t, tick, "tick field missing")
	assert.Equal(t, int64(17), tick.Integer)
}

func TestPhaseAndTickAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, PhaseFromContext(ctx))
	_, ok := TickFromContext(ctx)
	assert.False(t, ok)

	ctx = WithPhase(ctx, "Ignition")
	ctx = WithTick(ctx, 0)
	assert.Equal(t, "Ignition", PhaseFromContext(ctx))
	n, ok := TickFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestWithDecisionID_Validation(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		panic bool
	}{
		{"valid ledger id", "architectural_001", false},
		{"valid wide counter", "constraint_1042", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", maxIDLen+1), true},
		{"path separator", "constraint/001", true},
		{"whitespace", "constraint 001", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.panic {
				assert.Panics(t, func() { WithDecisionID(context.Background(), tt.id) })
				return
			}
			ctx := WithDecisionID(context.Background(), tt.id)
			assert.Equal(t, tt.id, DecisionIDFromContext(ctx))
		})
	}
}

func TestWithQueryID_Validation(t *testing.T) {
	ctx := WithQueryID(context.Background(), "q-42")
	assert.Equal(t, "q-42", QueryIDFromContext(ctx))

	assert.Panics(t, func() { WithQueryID(context.Background(), "") })
	assert.Panics(t, func() { WithQueryID(context.Background(), "bad\nid") })
}

func TestWithLoggerAndFromContext(t *testing.T) {
	logger := &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	// Missing logger falls back to a nop, never nil.
	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	fallback.Info(context.Background(), "should not panic")
}

// assertFieldExists checks that fields contains a string field key=expected.
func assertFieldExists(t *testing.T, fields []zapcore.Field, key, expected string) {
	t.Helper()
	for _, f := range fields {
		if f.Key == key {
			assert.Equal(t, expected, f.String, "field %s", key)
			return
		}
	}
	t.Errorf("field %s not found", key)
}
