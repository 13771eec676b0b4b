// Package connection owns the single document store connection: connect,
// disconnect and resuming the last session at startup.
package connection

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/storage"
	"github.com/peternagy/fireview/internal/store"
	"github.com/peternagy/fireview/internal/types"
)

// CredentialSource merges a project ID with the environment credentials.
type CredentialSource interface {
	Load(projectID string) types.ConnectionConfig
}

// Service handles the connection lifecycle.
type Service struct {
	state       *core.Session
	connector   store.Connector
	creds       CredentialSource
	store       *storage.Service
	collections *storage.CollectionService
}

// NewService creates a new connection service.
func NewService(state *core.Session, connector store.Connector, creds CredentialSource, st *storage.Service, collections *storage.CollectionService) *Service {
	return &Service{
		state:       state,
		connector:   connector,
		creds:       creds,
		store:       st,
		collections: collections,
	}
}

// Connect validates the configuration for projectID and establishes a client.
// On failure an existing session is left untouched and the adapter's error is
// returned unchanged. On success a previous session is replaced.
func (s *Service) Connect(ctx context.Context, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		err := &core.ValidationError{Field: "projectId", Message: "Project ID cannot be empty."}
		s.state.FailConnect(err.Error())
		s.state.NotifyError("Connection Error", err.Error())
		return err
	}

	s.state.BeginConnect()

	cfg := s.creds.Load(projectID)
	if missing := cfg.MissingFields(); len(missing) > 0 {
		err := &core.ConfigError{Missing: missing}
		debug.LogConnection("Configuration incomplete", zap.Strings("missing", missing))
		s.state.FailConnect(err.Error())
		s.state.NotifyError("Configuration Error", err.Error())
		return err
	}

	debug.LogConnection("Connecting", zap.String("projectId", projectID))
	client, err := s.connector.Connect(ctx, cfg)
	if err != nil {
		debug.LogConnection("Connect failed", zap.String("projectId", projectID), zap.Error(err))
		s.state.FailConnect(err.Error())
		s.state.NotifyError("Connection Error", err.Error())
		return err
	}

	s.state.SetConnected(cfg, client)

	// Persisting the project ID is non-critical.
	if err := s.store.SaveProjectID(projectID); err != nil {
		debug.LogConnection("Failed to persist project ID", zap.Error(err))
	}
	if len(s.collections.List()) == 0 {
		s.collections.Reload()
	}

	s.state.Notify("Success", fmt.Sprintf("Connected to project: %s.", projectID))
	return nil
}

// Disconnect closes the client and clears the session, registry and
// persisted project ID. Calling it while disconnected is harmless.
func (s *Service) Disconnect() error {
	client := s.state.Disconnect()
	s.collections.Clear()

	var closeErr error
	if client != nil {
		closeErr = client.Close()
		if closeErr != nil {
			debug.LogConnection("Failed to close client", zap.Error(closeErr))
		}
	}
	if err := s.store.ClearProjectID(); err != nil {
		debug.LogConnection("Failed to clear persisted project ID", zap.Error(err))
	}

	s.state.Notify("Disconnected", "Disconnected from the document store.")
	return closeErr
}

// Resume reconnects to the last persisted project, if any. It returns nil
// when there is nothing to resume.
func (s *Service) Resume(ctx context.Context) error {
	projectID, err := s.store.LoadProjectID()
	if err != nil {
		debug.LogConnection("Failed to read persisted project ID", zap.Error(err))
		return nil
	}
	if projectID == "" {
		return nil
	}
	debug.LogConnection("Resuming session", zap.String("projectId", projectID))
	return s.Connect(ctx, projectID)
}

// Status returns the connection status.
func (s *Service) Status() types.ConnectionStatus {
	return s.state.Status()
}
