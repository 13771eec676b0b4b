// Package storage handles local state persisted between runs: the last
// connected project and the registered collections.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/types"
)

// Service handles configuration file persistence.
type Service struct {
	configDir string
}

// NewService creates a new storage service.
func NewService(configDir string) *Service {
	return &Service{configDir: configDir}
}

// sessionData is the JSON structure of session.json.
type sessionData struct {
	ProjectID string `json:"projectId"`
}

// SessionFile returns the path to the session file.
func (s *Service) SessionFile() string {
	return filepath.Join(s.configDir, "session.json")
}

// CollectionsFile returns the path to the collections file.
func (s *Service) CollectionsFile() string {
	return filepath.Join(s.configDir, "collections.json")
}

// LoadProjectID returns the last connected project ID, or "" if none.
func (s *Service) LoadProjectID() (string, error) {
	data, err := os.ReadFile(s.SessionFile())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var sess sessionData
	if err := json.Unmarshal(data, &sess); err != nil {
		return "", err
	}
	return sess.ProjectID, nil
}

// SaveProjectID remembers the connected project ID.
func (s *Service) SaveProjectID(projectID string) error {
	data, err := json.MarshalIndent(sessionData{ProjectID: projectID}, "", "  ")
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	debug.LogStorage("Saving project ID", zap.String("projectId", projectID))
	return os.WriteFile(s.SessionFile(), data, 0644)
}

// ClearProjectID forgets the connected project ID.
func (s *Service) ClearProjectID() error {
	err := os.Remove(s.SessionFile())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// LoadCollections loads the registered collections from disk.
func (s *Service) LoadCollections() ([]types.CollectionEntry, error) {
	data, err := os.ReadFile(s.CollectionsFile())
	if err != nil {
		if os.IsNotExist(err) {
			return []types.CollectionEntry{}, nil
		}
		return nil, err
	}
	var entries []types.CollectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PersistCollections saves the registered collections to disk.
func (s *Service) PersistCollections(entries []types.CollectionEntry) error {
	if entries == nil {
		entries = []types.CollectionEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	debug.LogStorage("Saving collections", zap.Int("count", len(entries)))
	return os.WriteFile(s.CollectionsFile(), data, 0644)
}

func (s *Service) ensureDir() error {
	return os.MkdirAll(s.configDir, 0755)
}
