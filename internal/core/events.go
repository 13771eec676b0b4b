package core

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/types"
)

// Event names.
const (
	EventNotify         = "notify"
	EventImportProgress = "import:progress"
	EventImportComplete = "import:complete"
)

// EventEmitter defines the interface for emitting events to the UI.
type EventEmitter interface {
	Emit(eventName string, data interface{})
}

// NoopEventEmitter is a no-op event emitter for testing.
type NoopEventEmitter struct{}

// Emit does nothing (used for tests).
func (e *NoopEventEmitter) Emit(eventName string, data interface{}) {}

// LogEmitter writes every event to a zap logger.
type LogEmitter struct {
	Logger *zap.Logger
}

// Emit logs the event at info level.
func (e *LogEmitter) Emit(eventName string, data interface{}) {
	if e.Logger == nil {
		return
	}
	e.Logger.Info("event", zap.String("event", eventName), zap.Any("data", data))
}

// WriterEmitter prints notifications and import progress as plain lines,
// for terminal use.
type WriterEmitter struct {
	mu sync.Mutex
	W  io.Writer
}

// Emit writes one line per event. Progress lines overwrite each other.
func (e *WriterEmitter) Emit(eventName string, data interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch v := data.(type) {
	case types.Notification:
		prefix := ""
		if v.Variant == types.VariantDestructive {
			prefix = "! "
		}
		fmt.Fprintf(e.W, "%s%s\n", prefix, v)
	case types.ImportProgress:
		fmt.Fprintf(e.W, "\rimporting into %s: %d/%d (%d failed)", v.Collection, v.Current, v.Total, v.Failed)
		if v.Current == v.Total {
			fmt.Fprintln(e.W)
		}
	}
}

// MultiEmitter fans events out to several emitters.
type MultiEmitter []EventEmitter

// Emit forwards to each emitter in order.
func (m MultiEmitter) Emit(eventName string, data interface{}) {
	for _, e := range m {
		e.Emit(eventName, data)
	}
}

// =============================================================================
// Custom Error Types
// =============================================================================

// NotConnectedError indicates no store connection is established.
type NotConnectedError struct{}

func (e *NotConnectedError) Error() string {
	return "Not connected to the document store."
}

// OperationInProgressError indicates the same operation is already running.
type OperationInProgressError struct {
	Kind OpKind
	ID   string
}

func (e *OperationInProgressError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s already in progress", e.Kind)
	}
	return fmt.Sprintf("%s already in progress for document '%s'", e.Kind, e.ID)
}

// CollectionNotFoundError indicates a collection is not registered.
type CollectionNotFoundError struct {
	Name string
}

func (e *CollectionNotFoundError) Error() string {
	return fmt.Sprintf("collection not registered: %s", e.Name)
}

// ValidationError indicates a required input was empty or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigError indicates environment-sourced credentials are missing.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s. Check your environment or .env file for FIREBASE_* values.",
		strings.Join(e.Missing, ", "))
}
