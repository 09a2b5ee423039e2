package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger

	// baseLevel is the configured level; level drops to debug while the
	// debug flag is set.
	baseLevel = zapcore.InfoLevel
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	diag = NewRing(DiagnosticLines)
	echo = &echoSink{}
)

// LogLevelEnvVar is the environment variable that controls console verbosity.
// When unset or empty, nothing is printed to the console; the diagnostic
// ring still records at info.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "REMOTERELAY_LOG_LEVEL"

// DiagnosticLines is how many lines GetLog keeps.
const DiagnosticLines = 100

// Initialize creates a new logger with the named level.
// If name is empty, it checks REMOTERELAY_LOG_LEVEL environment variable.
// If neither is set, console output is disabled.
func Initialize(name string) error {
	if name == "" {
		name = os.Getenv(LogLevelEnvVar)
	}

	cores := []zapcore.Core{
		newRingCore(diag, levelEnabler{}),
		zapcore.NewCore(plainEncoder(), echo, levelEnabler{}),
	}

	if name != "" {
		baseLevel = parseLevel(name)

		config := zap.Config{
			Level:            level,
			Development:      false,
			Encoding:         "console",
			EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		}
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

		console, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cores = append(cores, console.Core())
	} else {
		baseLevel = zapcore.InfoLevel
	}
	SetDebug(false)

	logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return nil
}

// InitializeFromEnv initializes the logger from the REMOTERELAY_LOG_LEVEL
// environment variable. CLI commands use it to stay silent by default.
func InitializeFromEnv() error {
	return Initialize("")
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		return zapcore.InfoLevel
	}
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		logger = zap.NewNop()
	}
	return logger
}

// SetDebug lowers every output to debug level while on is true. Debug
// entries are dropped otherwise.
func SetDebug(on bool) {
	if on {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(baseLevel)
}

// DebugEnabled reports whether debug entries are currently recorded.
func DebugEnabled() bool { return level.Enabled(zapcore.DebugLevel) }

// SetSerialWriter registers where echoed log lines go, normally the serial
// link. A nil writer disables echo.
func SetSerialWriter(w io.Writer) { echo.setWriter(w) }

// SetSerial turns echoing of log lines to the serial writer on or off.
func SetSerial(on bool) { echo.enabled.Store(on) }

// GetLog returns the last DiagnosticLines log lines, oldest first.
func GetLog() string {
	return strings.Join(diag.Lines(), "\n")
}

// levelEnabler follows the shared atomic level, so SetDebug affects the
// ring, the echo and the console together.
type levelEnabler struct{}

func (levelEnabler) Enabled(l zapcore.Level) bool {
	return level.Enabled(l)
}

func plainEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = zapcore.OmitKey
	return zapcore.NewConsoleEncoder(cfg)
}

// echoSink writes to the serial writer while echo is enabled.
type echoSink struct {
	enabled atomic.Bool

	mu sync.Mutex
	w  io.Writer
}

func (e *echoSink) setWriter(w io.Writer) {
	e.mu.Lock()
	e.w = w
	e.mu.Unlock()
}

func (e *echoSink) Write(p []byte) (int, error) {
	if !e.enabled.Load() {
		return len(p), nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.w == nil {
		return len(p), nil
	}
	return e.w.Write(p)
}

func (e *echoSink) Sync() error { return nil }

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

// LogConnection logs a connection event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogTLSHandshake logs TLS handshake details
func LogTLSHandshake(remoteAddr string, version uint16, cipherSuite uint16, serverName string) {
	Info("TLS handshake completed",
		zap.String("remote_addr", remoteAddr),
		zap.String("tls_version", tlsVersionName(version)),
		zap.String("cipher_suite", cipherSuiteName(cipherSuite)),
		zap.String("server_name", serverName),
	)
}

// LogHTTPRequest logs a served HTTP request
func LogHTTPRequest(remoteAddr, method, path string, status int, user string) {
	Info("HTTP request",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("user", user),
	)
}

// LogWebSocketMessage logs a WebSocket message
func LogWebSocketMessage(remoteAddr string, direction string, messageType int, data []byte) {
	fields := []zap.Field{
		zap.String("remote_addr", remoteAddr),
		zap.String("direction", direction),
		zap.String("message_type", wsMessageTypeName(messageType)),
		zap.Int("length", len(data)),
	}

	// Text messages are JSON snapshots here; include them in full
	if messageType == 1 {
		fields = append(fields, zap.String("content", string(data)))
	} else {
		fields = append(fields, zap.String("hex_dump", hexDump(data)))
	}

	Debug("WebSocket message", fields...)
}

// LogRawBytes logs raw bytes (useful for debugging serial frames)
func LogRawBytes(label string, data []byte) {
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
		zap.String("ascii", asciiDump(data)),
	)
}

// Helper functions

func tlsVersionName(version uint16) string {
	switch version {
	case 0x0303:
		return "TLS 1.2"
	case 0x0304:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}

func cipherSuiteName(suite uint16) string {
	names := map[uint16]string{
		0x1301: "TLS_AES_128_GCM_SHA256",
		0x1302: "TLS_AES_256_GCM_SHA384",
		0x1303: "TLS_CHACHA20_POLY1305_SHA256",
		0xC02B: "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
		0xC02F: "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
	}
	if name, ok := names[suite]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", suite)
}

func wsMessageTypeName(msgType int) string {
	switch msgType {
	case 1:
		return "text"
	case 2:
		return "binary"
	case 8:
		return "close"
	case 9:
		return "ping"
	case 10:
		return "pong"
	default:
		return fmt.Sprintf("unknown(%d)", msgType)
	}
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 64 bytes for logging
	if len(data) > 64 {
		return hex.EncodeToString(data[:64]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > 64 {
		data = data[:64]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
