package document

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/store"
	"github.com/peternagy/fireview/internal/types"
)

const notConnectedHint = "Please connect to the document store first."

// client returns the connected client or notifies and fails.
func (s *Service) client() (store.Client, error) {
	client, err := s.state.GetClient()
	if err != nil {
		s.state.NotifyError("Not Connected", notConnectedHint)
		return nil, err
	}
	return client, nil
}

func requireCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return &core.ValidationError{Field: "collection", Message: "Collection name cannot be empty."}
	}
	return nil
}

// Get reads a single document. A missing document is a store.NotFoundError.
func (s *Service) Get(ctx context.Context, collection, docID string) (*types.Document, error) {
	if err := requireCollection(collection); err != nil {
		return nil, err
	}
	client, err := s.state.GetClient()
	if err != nil {
		return nil, err
	}
	doc, err := client.GetDocument(ctx, collection, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &store.NotFoundError{Path: collection, ID: docID}
	}
	return doc, nil
}

// Add creates a document and returns its ID. With a non-empty docID the
// write is an upsert that silently replaces any existing document with that
// ID; otherwise the store assigns an ID. On success the collection is
// refetched once.
func (s *Service) Add(ctx context.Context, collection string, data map[string]fieldvalue.Value, docID string) (string, error) {
	if err := requireCollection(collection); err != nil {
		return "", err
	}
	client, err := s.client()
	if err != nil {
		return "", err
	}

	release, err := s.state.Flights.Begin(core.OpAdd, "")
	if err != nil {
		return "", err
	}
	defer release()

	newID, err := client.CreateDocument(ctx, collection, data, strings.TrimSpace(docID))
	if err != nil {
		debug.LogDocument("Add failed", zap.String("collection", collection), zap.Error(err))
		s.state.NotifyError("Add Document Error", err.Error())
		return "", err
	}

	debug.LogDocument("Document added", zap.String("collection", collection), zap.String("id", newID))
	s.state.Notify("Document Added", fmt.Sprintf("Document %s added to %s.", newID, collection))
	_ = s.Fetch(ctx, collection)
	return newID, nil
}

// Update merges partial into an existing document. Fields not named in
// partial are left as they are. Fails if the document does not exist.
func (s *Service) Update(ctx context.Context, collection, docID string, partial map[string]fieldvalue.Value) error {
	if err := requireCollection(collection); err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}

	release, err := s.state.Flights.Begin(core.OpUpdate, docID)
	if err != nil {
		return err
	}
	defer release()

	if err := client.MergeUpdateDocument(ctx, collection, docID, partial); err != nil {
		debug.LogDocument("Update failed", zap.String("collection", collection), zap.String("id", docID), zap.Error(err))
		s.state.NotifyError("Update Document Error", err.Error())
		return err
	}

	debug.LogDocument("Document updated", zap.String("collection", collection), zap.String("id", docID))
	s.state.Notify("Document Updated", fmt.Sprintf("Document %s in %s updated.", docID, collection))
	_ = s.Fetch(ctx, collection)
	return nil
}

// Delete removes a document without checking that it exists.
func (s *Service) Delete(ctx context.Context, collection, docID string) error {
	if err := requireCollection(collection); err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}

	release, err := s.state.Flights.Begin(core.OpDelete, docID)
	if err != nil {
		return err
	}
	defer release()

	if err := client.DeleteDocument(ctx, collection, docID); err != nil {
		debug.LogDocument("Delete failed", zap.String("collection", collection), zap.String("id", docID), zap.Error(err))
		s.state.NotifyError("Delete Document Error", err.Error())
		return err
	}

	debug.LogDocument("Document deleted", zap.String("collection", collection), zap.String("id", docID))
	s.state.Notify("Document Deleted", fmt.Sprintf("Document %s from %s deleted.", docID, collection))
	_ = s.Fetch(ctx, collection)
	return nil
}
