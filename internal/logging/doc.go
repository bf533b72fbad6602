// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry)
//   - Automatic protocol correlation (trace_id, phase, tick, decision id)
//   - Defense-in-depth secret redaction
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithPhase(ctx, "CompositionAudit")
//	ctx = logging.WithTick(ctx, 17)
//	logger.Info(ctx, "transition applied", zap.String("to", "Injection"))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2026-07-18T10:15:30Z",
//	  "level": "info",
//	  "msg": "transition applied",
//	  "trace_id": "abc123",
//	  "phase": "CompositionAudit",
//	  "tick": 17,
//	  "to": "Injection"
//	}
//
// # Configuration
//
// Config comes from NewDefaultConfig and is adjusted in code. This package
// does not read logging settings from a config file or environment
// variables.
//
// # Secret Redaction
//
// Secrets are redacted at multiple layers:
//  1. Domain primitives (config.Secret type)
//  2. Encoder-level field name filtering
//  3. Encoder-level pattern matching
//
// Use helpers for manual redaction:
//
//	logger.Info(ctx, "webhook configured",
//	    logging.RedactedString("webhook_url", url))
//
// # Sampling
//
// Sampling prevents log floods below Error:
//   - Trace, Debug, Info and Warn all use the Info entry of
//     SamplingConfig.Levels (default: first 100, then 1 every 10); the
//     other entries of Levels are not consulted
//   - Error+: never sampled
//
// Disable for debugging:
//
//	cfg.Sampling.Enabled = false
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//	tl.AssertNoSecrets(t)
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
