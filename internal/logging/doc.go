// Package logging provides structured logging for garagectl and the door
// simulator.
//
// This package wraps a process-wide zap logger with convenience functions.
// Logging is silent unless a level is configured, so CLI output stays clean
// by default.
//
// # Log Levels
//
//   - Debug: raw telemetry payloads, gesture classification
//   - Info: connection state transitions, commands sent, credential updates
//   - Warn: command failures, undecodable telemetry, persistence failures
//   - Error: startup failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.InitializeWithOptions(logging.Options{
//	    Level:      "debug",
//	    OutputPath: "/tmp/garagectl.log",
//	}); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// The level falls back to GARAGECTL_LOG_LEVEL and the output path to
// GARAGECTL_LOG_FILE. The terminal UI should always log to a file.
//
// # Specialized Logging
//
//	logging.LogCommand("open", endpoint, 200, nil)
//	logging.LogConnectionState(target, "connecting", "connected", gen, nil)
//	logging.LogTelemetryMessage(target, payload)
//	logging.LogCredentialsChange(endpoint, key != "")
package logging
