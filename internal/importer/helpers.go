// Package importer handles bulk import of JSON documents into a collection.
package importer

import (
	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/document"
)

// Service handles import operations.
type Service struct {
	state *core.Session
	docs  *document.Service
}

// NewService creates a new import service. docs refetches the collection
// after a successful import.
func NewService(state *core.Session, docs *document.Service) *Service {
	return &Service{
		state: state,
		docs:  docs,
	}
}
