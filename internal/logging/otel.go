package logging

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// newOTELCore forwards entries to an OpenTelemetry log provider.
func newOTELCore(provider log.LoggerProvider) zapcore.Core {
	return otelzap.NewCore(ServiceName, otelzap.WithLoggerProvider(provider))
}
