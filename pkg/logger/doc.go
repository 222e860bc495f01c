// Package logger provides the structured logging interface used across
// chatscrape.
//
// It wraps zerolog. Human-readable output goes to stderr so that stdout can
// carry extracted lines; an optional JSON log file is written alongside.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("session", id).Info("Extraction started")
//
// Components receive a Logger explicitly. Tests use NewTestLogger to capture
// messages or NewNopLogger to discard them.
package logger
