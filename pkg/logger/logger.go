// Package logger wraps slog for structured logging, in the shape the
// teacher's pkg/logger does it (JSON/text handler choice, a fixed set of
// base attributes, With* chaining helpers, a process-wide Global). VPN
// account/session-specific helpers (LogVPN, LogAuth, LogDBQuery,
// WithUserID) are dropped — this proxy has no account or database layer —
// and replaced by WithConnectionID, used to correlate every log line
// emitted while handling one client.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Logger wraps slog for structured logging.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level     string
	Format    string // json or text
	AddSource bool
	Service   string
	Version   string
	Output    io.Writer // defaults to os.Stdout
}

// New creates a new structured logger.
func New(cfg Config) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// NewDefault creates the logger used before configuration has been loaded.
func NewDefault() *Logger {
	return New(Config{
		Level:     "info",
		Format:    "text",
		AddSource: false,
		Service:   "soxyproxy",
		Version:   "dev",
	})
}

// WithConnectionID tags every line this logger emits with a per-client
// connection identifier, so a client's whole handshake/relay lifetime can
// be grepped out of a shared log stream.
func (l *Logger) WithConnectionID(id uuid.UUID) *Logger {
	return &Logger{Logger: l.With(slog.String("connection_id", id.String()))}
}

// WithError adds an error to the logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(slog.String("error", err.Error()))}
}

// WithField adds a custom field to the logger.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(slog.Any(key, value))}
}

// LogRequest logs an HTTP request against the admin surface.
func (l *Logger) LogRequest(method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("ip", ip),
		slog.Int("status", statusCode),
		slog.Duration("duration", duration),
	)
}

// LogError logs an error alongside extra structured fields.
func (l *Logger) LogError(msg string, err error, fields ...any) {
	attrs := append([]any{slog.String("error", err.Error())}, fields...)
	l.Error(msg, attrs...)
}

// LogPanic logs a recovered panic value.
func (l *Logger) LogPanic(r any) {
	l.Error("panic_recovered", slog.Any("panic", r))
}

// Global logger instance, used by packages that have no Logger of their
// own threaded through (cmd/soxyproxy's early startup, before config is
// loaded).
var global *Logger

func init() {
	global = NewDefault()
}

// Global returns the global logger instance.
func Global() *Logger {
	return global
}

// SetGlobal replaces the global logger instance.
func SetGlobal(l *Logger) {
	global = l
}

func Debug(msg string, args ...any) { global.Debug(msg, args...) }
func Info(msg string, args ...any)  { global.Info(msg, args...) }
func Warn(msg string, args ...any)  { global.Warn(msg, args...) }
func Error(msg string, args ...any) { global.Error(msg, args...) }

func Fatal(msg string, args ...any) {
	global.Error(msg, args...)
	os.Exit(1)
}
