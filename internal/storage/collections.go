package storage

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/types"
)

// SelectionListener is called after the selected collection changes. name is
// "" when nothing is selected.
type SelectionListener func(ctx context.Context, name string)

// CollectionService is the registry of user-registered collections. The store
// cannot enumerate collections, so the list is maintained by hand and
// persisted in insertion order.
type CollectionService struct {
	store    *Service
	entries  []types.CollectionEntry
	selected string
	listener SelectionListener
	mu       sync.RWMutex
}

// NewCollectionService creates a registry and loads the persisted list.
func NewCollectionService(store *Service) *CollectionService {
	svc := &CollectionService{store: store}
	svc.Reload()
	return svc
}

// OnSelect installs the selection listener.
func (s *CollectionService) OnSelect(l SelectionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Reload replaces the in-memory list with the persisted one. Selection is
// kept only if the entry still exists.
func (s *CollectionService) Reload() {
	entries, err := s.store.LoadCollections()
	if err != nil {
		debug.LogCollection("Failed to load collections", zap.Error(err))
		entries = []types.CollectionEntry{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	if s.indexOf(s.selected) < 0 {
		s.selected = ""
	}
}

// List returns the registered collections in display order.
func (s *CollectionService) List() []types.CollectionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.CollectionEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Selected returns the selected collection name, or "".
func (s *CollectionService) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Add registers a collection. Empty and already registered names are a
// no-op and report false. The first collection added while nothing is
// selected becomes the selection.
func (s *CollectionService) Add(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	s.mu.Lock()
	if s.indexOf(name) >= 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.entries = append(s.entries, types.CollectionEntry{Name: name})
	err := s.store.PersistCollections(s.entries)
	selectNew := s.selected == ""
	if selectNew {
		s.selected = name
	}
	listener := s.listener
	s.mu.Unlock()

	debug.LogCollection("Collection added", zap.String("collection", name))
	if selectNew && listener != nil {
		listener(ctx, name)
	}
	return true, err
}

// Remove unregisters a collection. Removing the selected collection moves
// the selection to the first remaining entry, or clears it.
func (s *CollectionService) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	idx := s.indexOf(name)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.entries = append(s.entries[:idx:idx], s.entries[idx+1:]...)
	err := s.store.PersistCollections(s.entries)

	moved := s.selected == name
	if moved {
		s.selected = ""
		if len(s.entries) > 0 {
			s.selected = s.entries[0].Name
		}
	}
	selected := s.selected
	listener := s.listener
	s.mu.Unlock()

	debug.LogCollection("Collection removed", zap.String("collection", name))
	if moved && listener != nil {
		listener(ctx, selected)
	}
	return err
}

// Select changes the selection. "" clears it; an unregistered name fails
// with CollectionNotFoundError.
func (s *CollectionService) Select(ctx context.Context, name string) error {
	s.mu.Lock()
	if name != "" && s.indexOf(name) < 0 {
		s.mu.Unlock()
		return &core.CollectionNotFoundError{Name: name}
	}
	changed := s.selected != name
	s.selected = name
	listener := s.listener
	s.mu.Unlock()

	if changed && listener != nil {
		listener(ctx, name)
	}
	return nil
}

// Clear empties the in-memory registry and selection. The persisted list is
// left on disk and comes back with Reload.
func (s *CollectionService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []types.CollectionEntry{}
	s.selected = ""
}

func (s *CollectionService) indexOf(name string) int {
	for i, e := range s.entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}
