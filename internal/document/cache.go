// Package document holds the document cache of the selected collection and
// the create, update and delete operations that keep it in sync with the store.
package document

import (
	"context"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/types"
)

// Service handles the document cache and document mutations.
type Service struct {
	state *core.Session
}

// NewService creates a new document service.
func NewService(state *core.Session) *Service {
	return &Service{state: state}
}

// Fetch replaces the cache with the documents of collection. It does nothing
// when not connected. The cache, summary and previous error are cleared
// before the request so stale data is never shown as current. A result that
// arrives after a newer fetch was issued is dropped.
func (s *Service) Fetch(ctx context.Context, collection string) error {
	client, err := s.state.GetClient()
	if err != nil {
		return nil
	}

	seq := s.state.BeginFetch(collection)
	debug.LogDocument("Fetching documents", zap.String("collection", collection), zap.Uint64("seq", seq))

	docs, err := client.ListDocuments(ctx, collection)
	if err != nil {
		if s.state.FailFetch(seq, err.Error()) {
			s.state.NotifyError("Fetch Error", err.Error())
		} else {
			debug.LogDocument("Dropped stale fetch error", zap.String("collection", collection), zap.Uint64("seq", seq))
		}
		return err
	}

	if !s.state.ApplyFetch(seq, docs) {
		debug.LogDocument("Dropped stale fetch result", zap.String("collection", collection), zap.Uint64("seq", seq))
		return nil
	}
	debug.LogDocument("Fetched documents", zap.String("collection", collection), zap.Int("count", len(docs)))
	return nil
}

// Documents returns the cached documents.
func (s *Service) Documents() []types.Document {
	return s.state.Documents()
}

// Filtered returns the cached documents narrowed by opts.
func (s *Service) Filtered(opts types.FilterOptions) []types.Document {
	return Filter(s.state.Documents(), opts)
}

// Clear empties the cache and summary.
func (s *Service) Clear() {
	s.state.ClearDocuments()
}

// FetchError returns the message of the last failed fetch.
func (s *Service) FetchError() string {
	return s.state.FetchError()
}
