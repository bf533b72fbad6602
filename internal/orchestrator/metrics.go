package orchestrator

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const instrumentationName = "github.com/fyrsmithlabs/criticality/internal/orchestrator"

// Metrics bundles the tick loop's Prometheus instruments: a tick counter,
// a per-transition histogram, and a gauge that is 1 while blocked and 0
// otherwise.
type Metrics struct {
	Ticks          *prometheus.CounterVec
	Transitions    *prometheus.HistogramVec
	BlockingActive prometheus.Gauge
}

// NewMetrics constructs and registers a Metrics bundle against reg. Passing
// a fresh prometheus.NewRegistry() keeps tests isolated from the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "criticality",
			Subsystem: "orchestrator",
			Name:      "ticks_total",
			Help:      "Total number of orchestrator ticks, labeled by outcome.",
		}, []string{"outcome"}),
		Transitions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "criticality",
			Subsystem: "orchestrator",
			Name:      "transition_duration_seconds",
			Help:      "Duration of a single successful phase transition.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"from", "to"}),
		BlockingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "criticality",
			Subsystem: "orchestrator",
			Name:      "blocking_active",
			Help:      "1 while the protocol is halted in a Blocking substate, 0 otherwise.",
		}),
	}
	reg.MustRegister(m.Ticks, m.Transitions, m.BlockingActive)
	return m
}

// ObserveOutcome increments the tick counter for the given outcome.
func (m *Metrics) ObserveOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(string(o)).Inc()
}

// ObserveTransition records a successful transition's duration.
func (m *Metrics) ObserveTransition(from, to string, seconds float64) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Observe(seconds)
}

// SetBlocking updates the blocking gauge.
func (m *Metrics) SetBlocking(active bool) {
	if m == nil {
		return
	}
	if active {
		m.BlockingActive.Set(1)
	} else {
		m.BlockingActive.Set(0)
	}
}

// tracer is the package-level otel tracer for tick spans.
var tracer = otel.Tracer(instrumentationName)

// TracedTick wraps Tick in an "orchestrator.tick" span recording the
// current phase and resulting outcome. A tick performs at most one
// transition, so a phase change between entry and exit is that
// transition, and its duration feeds the transition histogram.
func TracedTick(ctx context.Context, tc TickContext, m *Metrics) (TickResult, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.tick")
	defer span.End()

	before := currentPhaseOf(tc.Snapshot)
	span.SetAttributes(attribute.String("phase", string(before)))
	start := time.Now()

	result, err := Tick(ctx, tc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.ObserveOutcome(OutcomeFailed)
		return result, err
	}

	if after := currentPhaseOf(result.Context.Snapshot); after != before {
		m.ObserveTransition(string(before), string(after), time.Since(start).Seconds())
		span.SetAttributes(attribute.String("transitioned_to", string(after)))
	}

	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
	m.ObserveOutcome(result.Outcome)
	m.SetBlocking(result.Outcome == OutcomeBlocked)
	return result, nil
}
