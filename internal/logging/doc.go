// Package logging provides structured logging for promorag on top of Zap.
//
// The Logger adds:
//   - a Trace level below Debug
//   - stderr output, optionally teed to OpenTelemetry via the otelzap bridge
//   - correlation fields taken from the context (trace, request and query ids)
//   - redaction of API keys and bearer tokens
//   - level-aware sampling where errors are never dropped
//
// Library packages take a plain *zap.Logger; the binary builds a Logger with
// NewLogger and hands out Underlying().
//
//	cfg, err := logging.FromConfig(appCfg.Logging)
//	logger, err := logging.NewLogger(cfg, nil)
//	defer logger.Sync()
//
//	ctx = logging.WithQueryID(ctx, id)
//	logger.Info(ctx, "answer generated", zap.Int("candidates", n))
//
// Tests use NewTestLogger, which records entries for assertions.
package logging
