// Package telemetry provides OpenTelemetry instrumentation for the
// protocol kernel.
//
// # Overview
//
// This package implements distributed tracing and metrics collection using
// the OpenTelemetry Go SDK. Telemetry data is exported over OTLP (gRPC or
// http/protobuf) to whatever collector the operator runs.
//
// # Usage
//
// Create telemetry instance:
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use tracer and meter:
//
//	tracer := tel.Tracer("criticality.orchestrator")
//	ctx, span := tracer.Start(ctx, "orchestrator.tick")
//	defer span.End()
//
//	meter := tel.Meter("criticality.orchestrator")
//	counter, _ := meter.Int64Counter("ticks")
//	counter.Add(ctx, 1)
//
// # Configuration
//
// Config's koanf tags use the keys below. The config package has no
// telemetry section, so callers build Config in code (criticalityd uses
// NewDefaultConfig).
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  service_name: "criticality"
//	  sampling:
//	    rate: 1.0  # 100% in dev, lower in prod
//	    always_on_errors: true
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Error Handling
//
// Telemetry failures never interrupt the protocol. If a provider cannot be
// initialized, the instance degrades gracefully and hands out no-op
// tracers and meters.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
