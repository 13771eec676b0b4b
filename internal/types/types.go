// Package types contains shared type definitions used across the fireview application.
package types

import (
	"fmt"
	"strings"

	"github.com/peternagy/fireview/internal/fieldvalue"
)

// =============================================================================
// Connection Types
// =============================================================================

// ConnectionConfig is the full client configuration: the user-supplied
// project ID merged with the credentials sourced from the environment.
type ConnectionConfig struct {
	ProjectID         string `json:"projectId"`
	APIKey            string `json:"apiKey"`
	AuthDomain        string `json:"authDomain"`
	StorageBucket     string `json:"storageBucket"`
	MessagingSenderID string `json:"messagingSenderId"`
	AppID             string `json:"appId"`
	MeasurementID     string `json:"measurementId,omitempty"` // Optional
}

// MissingFields returns the names of required fields that are empty.
func (c ConnectionConfig) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"apiKey", c.APIKey},
		{"authDomain", c.AuthDomain},
		{"projectId", c.ProjectID},
		{"storageBucket", c.StorageBucket},
		{"messagingSenderId", c.MessagingSenderID},
		{"appId", c.AppID},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// ConnectionPhase is the state of the single store connection.
type ConnectionPhase string

const (
	PhaseDisconnected  ConnectionPhase = "disconnected"
	PhaseConnecting    ConnectionPhase = "connecting"
	PhaseConnected     ConnectionPhase = "connected"
	PhaseConnectFailed ConnectionPhase = "connect_failed"
)

// ConnectionStatus represents the status of the connection.
type ConnectionStatus struct {
	Phase     ConnectionPhase `json:"phase"`
	Connected bool            `json:"connected"`
	ProjectID string          `json:"projectId,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// =============================================================================
// Collection and Document Types
// =============================================================================

// CollectionEntry is a user-registered collection, identified by its
// slash-delimited path.
type CollectionEntry struct {
	Name string `json:"name"`
}

// Document is a single record in a collection.
type Document struct {
	ID   string                      `json:"id"`
	Data map[string]fieldvalue.Value `json:"data"`
}

// FilterOptions narrows the cached documents without refetching.
type FilterOptions struct {
	Search string `json:"search"` // Matched against the ID and every field
	Field  string `json:"field"`  // Field name for the field filter
	Value  string `json:"value"`  // Substring the field must contain
}

// =============================================================================
// Schema Types
// =============================================================================

// SchemaField describes one top-level field seen in the cached documents.
type SchemaField struct {
	Name       string   `json:"name"`
	Types      []string `json:"types"`
	Count      int      `json:"count"`
	Occurrence float64  `json:"occurrence"` // Percentage of documents containing this field
}

// SchemaResult is the inferred shape of a collection.
type SchemaResult struct {
	Collection string        `json:"collection"`
	TotalDocs  int           `json:"totalDocs"`
	Fields     []SchemaField `json:"fields"`
}

// =============================================================================
// Import Types
// =============================================================================

// ImportItem is one element of a bulk import payload, with the optional
// top-level "id" key stripped out of Data.
type ImportItem struct {
	ID   string                      `json:"id,omitempty"`
	Data map[string]fieldvalue.Value `json:"data"`
}

// Label returns the item's ID, or "auto" when the store assigns one.
func (i ImportItem) Label() string {
	if i.ID == "" {
		return "auto"
	}
	return i.ID
}

// ImportResult tallies a bulk import.
type ImportResult struct {
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
	Errors       []string `json:"errors"`
}

// ImportProgress is emitted while a bulk import runs.
type ImportProgress struct {
	Collection string `json:"collection"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
}

// =============================================================================
// Notification Types
// =============================================================================

// NotificationVariant distinguishes success and failure toasts.
type NotificationVariant string

const (
	VariantDefault     NotificationVariant = "default"
	VariantDestructive NotificationVariant = "destructive"
)

// Notification is a transient user-facing message.
type Notification struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Variant     NotificationVariant `json:"variant"`
}

func (n Notification) String() string {
	return fmt.Sprintf("%s: %s", n.Title, n.Description)
}
