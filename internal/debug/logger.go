// Package debug provides category-scoped structured logging. Every service
// logs through one of the category helpers; the process installs a zap logger
// at startup with Init. Until then all logging is discarded.
package debug

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Categories for debug logging
const (
	CategoryConnection = "connection"
	CategoryCollection = "collection"
	CategoryDocument   = "document"
	CategoryImport     = "import"
	CategorySummary    = "summary"
	CategoryStorage    = "storage"
)

var (
	mu           sync.RWMutex
	globalLogger = zap.NewNop()
)

// NewLogger creates a zap logger for the given environment.
// prod uses JSON output, local/dev use colored console output.
// level (if non-empty) overrides the log level: debug, info, warn, error.
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "", "local", "dev":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// Init installs the process-wide logger. A nil logger restores the no-op logger.
func Init(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	globalLogger = l
	mu.Unlock()
}

// L returns the process-wide logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

// Named returns the logger for a category.
func Named(category string) *zap.Logger {
	return L().Named(category)
}

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context, falling back to the
// process-wide logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return L()
}

// Convenience functions for each category

// LogConnection logs a connection-related debug message
func LogConnection(message string, fields ...zap.Field) {
	Named(CategoryConnection).Debug(message, fields...)
}

// LogCollection logs a collection-registry debug message
func LogCollection(message string, fields ...zap.Field) {
	Named(CategoryCollection).Debug(message, fields...)
}

// LogDocument logs a document-related debug message
func LogDocument(message string, fields ...zap.Field) {
	Named(CategoryDocument).Debug(message, fields...)
}

// LogImport logs an import-related debug message
func LogImport(message string, fields ...zap.Field) {
	Named(CategoryImport).Debug(message, fields...)
}

// LogSummary logs a summary-related debug message
func LogSummary(message string, fields ...zap.Field) {
	Named(CategorySummary).Debug(message, fields...)
}

// LogStorage logs a local-persistence debug message
func LogStorage(message string, fields ...zap.Field) {
	Named(CategoryStorage).Debug(message, fields...)
}
