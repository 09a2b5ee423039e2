// Package logging provides structured logging for the relay controller.
//
// This package wraps a zap logger with convenience functions for common
// logging patterns. Every entry goes to three places:
//   - the console, when a level was configured (REMOTERELAY_LOG_LEVEL or
//     the daemon config)
//   - a ring of the last DiagnosticLines lines, served by GetLog on the
//     /debug endpoint
//   - the serial link, while SetSerial(true) is in effect
//
// # Log Levels
//
//   - Debug: Detailed debugging info (serial frames, state transitions).
//     Dropped unless SetDebug(true), which mirrors the debug settings flag.
//   - Info: Normal operations (settings loaded, commands, connections)
//   - Warn: Non-fatal issues (serial write failures, retries)
//   - Error: Failures that need attention (flash errors, layout violations)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Settings loaded from flash",
//	    zap.Int("addr", 143),
//	    zap.Uint8("erase_cycles", 2),
//	)
//
// Components take a *zap.Logger option and default to GetLogger, so tests
// can pass an observer core.
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("info"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
