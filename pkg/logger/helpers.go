package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

func orGlobal(l Logger) Logger {
	if l == nil {
		return GetLogger()
	}
	return l
}

// LogRequest logs one HTTP exchange, with the level picked from the status
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		orGlobal(l).DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		orGlobal(l).WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		orGlobal(l).ErrorWithFields("HTTP request server error", fields)
	default:
		orGlobal(l).DebugWithFields("HTTP request finished", fields)
	}
}

// LogPass logs the outcome of one scan pass
func LogPass(l Logger, pass int, strategy string, candidates, emitted, duplicates, noise int) {
	orGlobal(l).DebugWithFields("Scan pass finished", map[string]interface{}{
		"pass":       pass,
		"container":  strategy,
		"candidates": candidates,
		"emitted":    emitted,
		"duplicates": duplicates,
		"noise":      noise,
	})
}

// LogSinkFailure logs a line that a sink could not accept
func LogSinkFailure(l Logger, sink string, line string, err error) {
	if len(line) > 80 {
		line = line[:80] + "..."
	}
	orGlobal(l).WithFields(map[string]interface{}{
		"sink": sink,
		"line": line,
	}).WithError(err).Warn("Line delivery failed")
}

// LogSessionTransition logs a driver state change
func LogSessionTransition(l Logger, sessionID, from, to string) {
	orGlobal(l).WithFields(map[string]interface{}{
		"session": sessionID,
		"from":    from,
		"to":      to,
	}).Info("Session state changed")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	logger := orGlobal(l).WithField("component", component)
	if len(config) > 0 {
		logger = logger.WithFields(config)
	}
	logger.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	orGlobal(l).WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// LogMetrics logs a summary of counters for an operation
func LogMetrics(l Logger, operation string, metrics map[string]interface{}) {
	fields := map[string]interface{}{
		"operation": operation,
		"type":      "metrics",
	}
	for k, v := range metrics {
		fields[k] = v
	}
	orGlobal(l).InfoWithFields("Performance metrics", fields)
}

// NewNopLogger creates a no-operation logger
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
