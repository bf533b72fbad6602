// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts protocol correlation data from context: the otel
// trace, the phase and tick the orchestrator is on, and the decision or
// blocking query being operated on.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 8)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if p := PhaseFromContext(ctx); p != "" {
		fields = append(fields, zap.String("phase", p))
	}
	if n, ok := TickFromContext(ctx); ok {
		fields = append(fields, zap.Int("tick", n))
	}
	if id := DecisionIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("decision.id", id))
	}
	if id := QueryIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("query.id", id))
	}

	return fields
}

// Context key types
type phaseCtxKey struct{}
type tickCtxKey struct{}
type decisionCtxKey struct{}
type queryCtxKey struct{}

const maxIDLen = 128

// idPattern allows alphanumeric, hyphen, underscore — covers ledger ids
// (category_NNN) and uuid-style blocking query ids alike.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateCorrelationID rejects ids that would corrupt the log stream:
// empty, non-UTF-8, oversized, or carrying separator characters.
func validateCorrelationID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// PhaseFromContext extracts the protocol phase from context.
func PhaseFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(phaseCtxKey{}).(string); ok {
		return p
	}
	return ""
}

// WithPhase tags ctx with the protocol phase the current work belongs to.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseCtxKey{}, phase)
}

// TickFromContext extracts the orchestrator tick number from context.
func TickFromContext(ctx context.Context) (int, bool) {
	if n, ok := ctx.Value(tickCtxKey{}).(int); ok {
		return n, true
	}
	return 0, false
}

// WithTick tags ctx with the orchestrator's tick number.
func WithTick(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, tickCtxKey{}, n)
}

// DecisionIDFromContext extracts the ledger decision id from context.
func DecisionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(decisionCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithDecisionID tags ctx with the ledger decision being operated on.
// Panics if the id is empty or contains invalid characters.
func WithDecisionID(ctx context.Context, id string) context.Context {
	if err := validateCorrelationID(id, "decisionID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, decisionCtxKey{}, id)
}

// QueryIDFromContext extracts the blocking query id from context.
func QueryIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(queryCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithQueryID tags ctx with the blocking query being raised or resolved.
// Panics if the id is empty or contains invalid characters.
func WithQueryID(ctx context.Context, id string) context.Context {
	if err := validateCorrelationID(id, "queryID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, queryCtxKey{}, id)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a default nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
