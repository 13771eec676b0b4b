// Package store defines the document-store client boundary. Backends live in
// subpackages (firestore, mongodb, memory) and translate their driver errors
// into the error types declared here.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/types"
)

// Connector establishes a client handle for a validated configuration.
type Connector interface {
	Connect(ctx context.Context, cfg types.ConnectionConfig) (Client, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, cfg types.ConnectionConfig) (Client, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, cfg types.ConnectionConfig) (Client, error) {
	return f(ctx, cfg)
}

// Client is a connected handle. Every call is keyed by a slash-delimited
// collection path and, where relevant, a document ID.
type Client interface {
	// ListDocuments returns every document in the collection.
	ListDocuments(ctx context.Context, path string) ([]types.Document, error)
	// GetDocument returns nil, nil when the document does not exist.
	GetDocument(ctx context.Context, path, id string) (*types.Document, error)
	// CreateDocument writes data under id, overwriting any existing document,
	// or under a generated ID when id is empty. It returns the document ID.
	CreateDocument(ctx context.Context, path string, data map[string]fieldvalue.Value, id string) (string, error)
	// MergeUpdateDocument sets only the given fields on an existing document.
	MergeUpdateDocument(ctx context.Context, path, id string, partial map[string]fieldvalue.Value) error
	// DeleteDocument removes the document without checking that it exists.
	DeleteDocument(ctx context.Context, path, id string) error
	// Close releases the handle.
	Close() error
}

// NewDocumentID returns a 20-character alphanumeric ID, the shape of the IDs
// Firestore assigns to auto-created documents.
func NewDocumentID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
}

// =============================================================================
// Custom Error Types
// =============================================================================

// AuthError indicates the client is not authenticated.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// PermissionError indicates the store rejected the operation.
type PermissionError struct {
	Message string
	Err     error
}

func (e *PermissionError) Error() string { return e.Message }
func (e *PermissionError) Unwrap() error { return e.Err }

// NotFoundError indicates the collection or document does not exist.
type NotFoundError struct {
	Path string
	ID   string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("document '%s' not found in collection '%s'", e.ID, e.Path)
	}
	return fmt.Sprintf("collection '%s' not found", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }
