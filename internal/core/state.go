// Package core provides shared session state and event handling.
package core

import (
	"sync"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/store"
	"github.com/peternagy/fireview/internal/types"
)

// Session holds the state shared by every service: the single store
// connection, the document cache of the selected collection and the last
// summary. It is created once per process and reset field by field on
// disconnect.
type Session struct {
	mu        sync.RWMutex
	phase     types.ConnectionPhase
	config    *types.ConnectionConfig
	client    store.Client
	lastError string

	documents  []types.Document
	collection string // Collection the cache belongs to
	fetchSeq   uint64 // Sequence of the newest issued fetch
	fetchErr   string
	summary    string

	ConfigDir     string       // Config directory path
	DisableEvents bool         // Disable event emission (for tests)
	Emitter       EventEmitter // Event emitter for notifications and progress
	Flights       *Flights
}

// NewSession creates a disconnected session.
func NewSession() *Session {
	return &Session{
		phase:   types.PhaseDisconnected,
		Flights: NewFlights(),
	}
}

// =============================================================================
// Connection
// =============================================================================

// GetClient returns the store client, or NotConnectedError.
func (s *Session) GetClient() (store.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phase != types.PhaseConnected || s.client == nil {
		return nil, &NotConnectedError{}
	}
	return s.client, nil
}

// IsConnected reports whether a client handle is active.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase == types.PhaseConnected
}

// Status returns a snapshot of the connection state.
func (s *Session) Status() types.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := types.ConnectionStatus{
		Phase:     s.phase,
		Connected: s.phase == types.PhaseConnected,
		Error:     s.lastError,
	}
	if s.config != nil {
		st.ProjectID = s.config.ProjectID
	}
	return st
}

// Config returns a copy of the active configuration, or nil.
func (s *Session) Config() *types.ConnectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil
	}
	cfg := *s.config
	return &cfg
}

// BeginConnect marks a connect attempt. An active session stays connected
// while the attempt runs.
func (s *Session) BeginConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
	if s.phase != types.PhaseConnected {
		s.phase = types.PhaseConnecting
	}
}

// SetConnected installs a new client. A previously active client is closed
// after the swap.
func (s *Session) SetConnected(cfg types.ConnectionConfig, client store.Client) {
	s.mu.Lock()
	previous := s.client
	s.client = client
	s.config = &cfg
	s.phase = types.PhaseConnected
	s.lastError = ""
	s.mu.Unlock()

	if previous != nil && previous != client {
		if err := previous.Close(); err != nil {
			debug.LogConnection("Failed to close replaced client", zap.Error(err))
		}
	}
}

// FailConnect records a failed connect attempt. An active session is left
// untouched apart from the recorded error.
func (s *Session) FailConnect(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = message
	if s.phase != types.PhaseConnected {
		s.phase = types.PhaseConnectFailed
		s.config = nil
	}
}

// Disconnect clears the connection, cache and summary and returns the
// previous client (nil when there was none) for the caller to close.
func (s *Session) Disconnect() store.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	client := s.client
	s.client = nil
	s.config = nil
	s.phase = types.PhaseDisconnected
	s.lastError = ""
	s.documents = nil
	s.collection = ""
	s.fetchSeq++ // results of in-flight fetches are now stale
	s.fetchErr = ""
	s.summary = ""
	return client
}

// =============================================================================
// Document cache
// =============================================================================

// BeginFetch clears the cache, summary and fetch error and returns the
// sequence number the result must be applied with.
func (s *Session) BeginFetch(collection string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchSeq++
	s.collection = collection
	s.documents = nil
	s.summary = ""
	s.fetchErr = ""
	return s.fetchSeq
}

// ApplyFetch replaces the cache wholesale. It returns false, leaving the
// cache alone, when a newer fetch has been issued since seq.
func (s *Session) ApplyFetch(seq uint64, docs []types.Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		return false
	}
	s.documents = docs
	return true
}

// FailFetch records a fetch error for seq. Stale failures are dropped.
func (s *Session) FailFetch(seq uint64, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		return false
	}
	s.documents = nil
	s.fetchErr = message
	return true
}

// ClearDocuments empties the cache and summary, invalidating in-flight fetches.
func (s *Session) ClearDocuments() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchSeq++
	s.collection = ""
	s.documents = nil
	s.summary = ""
	s.fetchErr = ""
}

// Documents returns a copy of the cached documents.
func (s *Session) Documents() []types.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Document, len(s.documents))
	copy(out, s.documents)
	return out
}

// CachedCollection returns the collection the cache was last fetched for.
func (s *Session) CachedCollection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// FetchError returns the message of the last failed fetch, if any.
func (s *Session) FetchError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchErr
}

// =============================================================================
// Summary
// =============================================================================

// Summary returns the current collection summary.
func (s *Session) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// SetSummary stores a new summary.
func (s *Session) SetSummary(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}

// =============================================================================
// Events
// =============================================================================

// EmitEvent safely emits an event through the emitter.
func (s *Session) EmitEvent(eventName string, data interface{}) {
	if s.DisableEvents || s.Emitter == nil {
		return
	}
	s.Emitter.Emit(eventName, data)
}

// Notify emits a user-facing notification.
func (s *Session) Notify(title, description string) {
	s.EmitEvent(EventNotify, types.Notification{Title: title, Description: description, Variant: types.VariantDefault})
}

// NotifyError emits a destructive notification.
func (s *Session) NotifyError(title, description string) {
	s.EmitEvent(EventNotify, types.Notification{Title: title, Description: description, Variant: types.VariantDestructive})
}
