// Package logging provides the operation-scoped leveled logger used by the
// persistence layers and HTTP handlers.
package logging

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

type requestIDKey struct{}

var (
	baseMu sync.RWMutex
	base   = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "schedule",
	})
)

// Configure sets the level of the shared base logger, e.g. from LOG_LEVEL.
func Configure(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	baseMu.Lock()
	base.SetLevel(lvl)
	baseMu.Unlock()
}

// SetOutput redirects the base logger; tests use it to silence output.
func SetOutput(w io.Writer) {
	baseMu.Lock()
	base.SetOutput(w)
	baseMu.Unlock()
}

// WithRequestID stores a request id for loggers created from ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID returns the request id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging for a component. It resolves the base
// logger on every call so Configure and SetOutput apply to loggers created
// earlier, including package-level ones.
type Logger struct {
	fields []interface{}
}

// New creates a logger tagged with the component name.
func New(component string) *Logger {
	return &Logger{fields: []interface{}{"component", component}}
}

// FromContext returns a copy of lg carrying the request id of ctx, if any.
func (lg *Logger) FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return lg
	}
	if rid := RequestID(ctx); rid != "" {
		fields := make([]interface{}, 0, len(lg.fields)+2)
		fields = append(fields, lg.fields...)
		return &Logger{fields: append(fields, "request_id", rid)}
	}
	return lg
}

func (lg *Logger) l() *log.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.With(lg.fields...)
}

// LogError logs an error with context
func (lg *Logger) LogError(operation string, err error) {
	lg.l().Error("operation failed", "operation", operation, "error", err)
}

// LogErrorf logs a formatted error with context
func (lg *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	lg.l().With("operation", operation).Errorf(format, args...)
}

// LogInfo logs an info message with context
func (lg *Logger) LogInfo(operation string, message string) {
	lg.l().Info(message, "operation", operation)
}

// LogInfof logs a formatted info message with context
func (lg *Logger) LogInfof(operation string, format string, args ...interface{}) {
	lg.l().With("operation", operation).Infof(format, args...)
}

// LogWarn logs a warning with context
func (lg *Logger) LogWarn(operation string, message string) {
	lg.l().Warn(message, "operation", operation)
}

// LogWarnf logs a formatted warning with context
func (lg *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	lg.l().With("operation", operation).Warnf(format, args...)
}

// LogDebugf logs a formatted debug message with context
func (lg *Logger) LogDebugf(operation string, format string, args ...interface{}) {
	lg.l().With("operation", operation).Debugf(format, args...)
}
