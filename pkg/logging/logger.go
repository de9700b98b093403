// Package logging provides structured logging for agriclassify.
// It wraps zerolog to provide a consistent logging interface with support for
// JSON output (machine consumption) and human-readable console output.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// ContextKey type for context values to avoid collisions.
type ContextKey string

// Context keys for correlation information.
const (
	BatchIDKey ContextKey = "batch_id"
	ItemIDKey  ContextKey = "item_id"
)

// Level represents logging severity levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error).
	Level Level

	// ServiceName is included in all log entries.
	ServiceName string

	// JSONFormat enables JSON output when true, human-readable when false.
	JSONFormat bool

	// Output sets the writer for logs (defaults to os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a Config with sensible defaults for interactive use.
func DefaultConfig() *Config {
	return &Config{
		Level:       LevelInfo,
		ServiceName: "agriclassify",
		JSONFormat:  false,
		Output:      os.Stderr,
	}
}

// Logger is the interface for structured logging.
type Logger interface {
	// Debug logs a debug message with optional fields.
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields.
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields.
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields.
	Error(msg string, fields ...Field)

	// With returns a new Logger with the given fields attached to all subsequent logs.
	With(fields ...Field) Logger

	// WithContext returns a new Logger that extracts correlation IDs from the context.
	WithContext(ctx context.Context) Logger

	// Zerolog returns the underlying zerolog.Logger.
	Zerolog() zerolog.Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field with the given key and value.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err creates a Field for an error.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// logger implements the Logger interface using zerolog.
type logger struct {
	zl zerolog.Logger
}

// NewLogger creates a new Logger with the given configuration.
func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if !cfg.JSONFormat {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(output),
		}
	}

	zl := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service_name", cfg.ServiceName).
		Logger()

	return &logger{zl: zl}
}

// isTerminal reports whether w is a terminal that can render colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// parseLevel converts Level to zerolog.Level.
func parseLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Zerolog returns the underlying zerolog.Logger.
func (l *logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *logger) Debug(msg string, fields ...Field) {
	l.zl.Debug().Fields(fieldList(fields)).Msg(msg)
}

func (l *logger) Info(msg string, fields ...Field) {
	l.zl.Info().Fields(fieldList(fields)).Msg(msg)
}

func (l *logger) Warn(msg string, fields ...Field) {
	l.zl.Warn().Fields(fieldList(fields)).Msg(msg)
}

func (l *logger) Error(msg string, fields ...Field) {
	l.zl.Error().Fields(fieldList(fields)).Msg(msg)
}

// With returns a new logger with additional fields.
func (l *logger) With(fields ...Field) Logger {
	return &logger{zl: l.zl.With().Fields(fieldList(fields)).Logger()}
}

// WithContext returns a new logger carrying the batch and item IDs found in ctx.
func (l *logger) WithContext(ctx context.Context) Logger {
	zc := l.zl.With()
	for _, key := range []ContextKey{BatchIDKey, ItemIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			zc = zc.Str(string(key), v)
		}
	}
	return &logger{zl: zc.Logger()}
}

// ContextWithBatchID returns a copy of ctx carrying the batch ID.
func ContextWithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

// ContextWithItemID returns a copy of ctx carrying the item ID.
func ContextWithItemID(ctx context.Context, itemID string) context.Context {
	return context.WithValue(ctx, ItemIDKey, itemID)
}

// fieldList flattens fields into the key/value list zerolog's Fields accepts.
// zerolog renders errors, durations and times natively.
func fieldList(fields []Field) []interface{} {
	list := make([]interface{}, 0, 2*len(fields))
	for _, f := range fields {
		list = append(list, f.Key, f.Value)
	}
	return list
}

// nopLogger is a logger that discards all output.
type nopLogger struct{}

func (n *nopLogger) Debug(msg string, fields ...Field)      {}
func (n *nopLogger) Info(msg string, fields ...Field)       {}
func (n *nopLogger) Warn(msg string, fields ...Field)       {}
func (n *nopLogger) Error(msg string, fields ...Field)      {}
func (n *nopLogger) With(fields ...Field) Logger            { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger { return n }
func (n *nopLogger) Zerolog() zerolog.Logger                { return zerolog.Nop() }

// NewNopLogger returns a logger that discards all output.
// Useful for testing when you don't want log noise.
func NewNopLogger() Logger {
	return &nopLogger{}
}
