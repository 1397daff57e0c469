package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}[l]
}

// ParseLogLevel parses a level name, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) toSlogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger provides structured JSON logging.
type Logger struct {
	logger *slog.Logger
	level  LogLevel
}

// NewLogger creates a logger writing JSON to output (stdout when nil).
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: level.toSlogLevel(),
	})
	return &Logger{logger: slog.New(handler), level: level}
}

// WithField returns a logger with an added field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With(key, value), level: l.level}
}

// WithFields returns a logger with several added fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{logger: l.logger.With(args...), level: l.level}
}

// WithError returns a logger carrying err as a field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(msg string) { l.logger.Debug(msg) }
func (l *Logger) Info(msg string)  { l.logger.Info(msg) }
func (l *Logger) Warn(msg string)  { l.logger.Warn(msg) }
func (l *Logger) Error(msg string) { l.logger.Error(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

type contextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// LoggerKey is the context key for the request-scoped logger.
	LoggerKey contextKey = "logger"
)

// WithRequestID stores a request ID on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID, or empty.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID stores the authenticated user ID on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID retrieves the user ID, or empty.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// WithLogger stores a logger on the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the context's logger enriched with the request and
// user IDs when present. Falls back to a default info-level logger.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(LoggerKey).(*Logger)
	if !ok {
		logger = NewLogger(InfoLevel, os.Stdout)
	}
	if id := GetRequestID(ctx); id != "" {
		logger = logger.WithField("request_id", id)
	}
	if id := GetUserID(ctx); id != "" {
		logger = logger.WithField("user_id", id)
	}
	return logger
}
