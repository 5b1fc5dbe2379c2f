package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "GARAGECTL_LOG_LEVEL"

// LogFileEnvVar redirects log output to a file. The terminal UI owns the
// screen, so anything written to stdout while it runs corrupts the frame.
const LogFileEnvVar = "GARAGECTL_LOG_FILE"

// Options configures the global logger.
type Options struct {
	Level      string // debug, info, warn, error; empty means LogLevelEnvVar or silent
	OutputPath string // file path, "stdout" or "stderr"; empty means LogFileEnvVar or stdout
}

// Initialize creates a new logger with the specified level writing to stdout.
// If level is empty, it checks the GARAGECTL_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	return InitializeWithOptions(Options{Level: level})
}

// InitializeWithOptions is Initialize with control over the output sink.
func InitializeWithOptions(opts Options) error {
	level := opts.Level
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		setLogger(zap.NewNop())
		return nil
	}

	output := opts.OutputPath
	if output == "" {
		output = os.Getenv(LogFileEnvVar)
	}
	if output == "" {
		output = "stdout"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if output == "stdout" || output == "stderr" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		// No ANSI escapes in files
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	setLogger(built)
	return nil
}

// InitializeFromEnv initializes the logger from the GARAGECTL_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	setLogger(l)
}

func setLogger(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogCommand logs the outcome of a door command request.
func LogCommand(command string, endpoint string, statusCode int, err error) {
	fields := []zap.Field{
		zap.String("command", command),
		zap.String("endpoint", endpoint),
	}
	if statusCode != 0 {
		fields = append(fields, zap.Int("status_code", statusCode))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		Warn("Door command failed", fields...)
		return
	}
	Info("Door command sent", fields...)
}

// LogConnectionState logs a telemetry connection state transition
func LogConnectionState(target string, from, to string, generation uint64, err error) {
	fields := []zap.Field{
		zap.String("target", target),
		zap.String("from", from),
		zap.String("to", to),
		zap.Uint64("generation", generation),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Info("Telemetry connection state", fields...)
}

// LogTelemetryMessage logs a raw telemetry payload at debug level
func LogTelemetryMessage(target string, data []byte) {
	Debug("Telemetry message",
		zap.String("target", target),
		zap.Int("length", len(data)),
		zap.String("content", printable(data)),
	)
}

// LogCredentialsChange logs a credential update. The key itself is never
// logged, only whether one is present.
func LogCredentialsChange(endpoint string, hasKey bool) {
	Info("Credentials updated",
		zap.String("endpoint", endpoint),
		zap.Bool("api_key_set", hasKey),
	)
}

func printable(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 256 bytes
	truncated := len(data) > 256
	if truncated {
		data = data[:256]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	if truncated {
		return string(result) + "..."
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
