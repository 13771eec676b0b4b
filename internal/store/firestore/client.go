// Package firestore is the Cloud Firestore backend of the store boundary.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/store"
	"github.com/peternagy/fireview/internal/types"
)

// Options configures how the client authenticates and where it connects.
type Options struct {
	DatabaseID      string // Empty means the default database
	CredentialsFile string // Service account JSON; empty uses application default credentials
	EmulatorHost    string // host:port of a local emulator
}

// Connector creates Firestore clients.
type Connector struct {
	opts Options
}

// NewConnector creates a Firestore connector.
func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts}
}

// Connect implements store.Connector. The web credentials in cfg have already
// been validated; the server-side client authenticates with the configured
// service account or application default credentials.
func (c *Connector) Connect(ctx context.Context, cfg types.ConnectionConfig) (store.Client, error) {
	if c.opts.EmulatorHost != "" {
		// The client library only reads the emulator address from the environment.
		if err := os.Setenv("FIRESTORE_EMULATOR_HOST", c.opts.EmulatorHost); err != nil {
			return nil, fmt.Errorf("failed to configure emulator: %w", err)
		}
	}

	var clientOpts []option.ClientOption
	if c.opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(c.opts.CredentialsFile))
	}

	var (
		client *firestore.Client
		err    error
	)
	if c.opts.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.ProjectID, c.opts.DatabaseID, clientOpts...)
	} else {
		client, err = firestore.NewClient(ctx, cfg.ProjectID, clientOpts...)
	}
	if err != nil {
		return nil, translate(err, fmt.Sprintf("connect to project '%s'", cfg.ProjectID), "", "")
	}
	return &Client{fs: client}, nil
}

// Client wraps a *firestore.Client.
type Client struct {
	fs *firestore.Client
}

func (c *Client) collection(path string) (*firestore.CollectionRef, error) {
	ref := c.fs.Collection(strings.Trim(path, "/"))
	if ref == nil {
		return nil, fmt.Errorf("invalid collection path '%s': a collection path has an odd number of segments", path)
	}
	return ref, nil
}

func (c *Client) doc(path, id string) (*firestore.DocumentRef, error) {
	coll, err := c.collection(path)
	if err != nil {
		return nil, err
	}
	ref := coll.Doc(id)
	if ref == nil {
		return nil, fmt.Errorf("invalid document ID '%s'", id)
	}
	return ref, nil
}

// ListDocuments implements store.Client.
func (c *Client) ListDocuments(ctx context.Context, path string) ([]types.Document, error) {
	coll, err := c.collection(path)
	if err != nil {
		return nil, err
	}

	iter := coll.Documents(ctx)
	defer iter.Stop()

	var docs []types.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, translateList(err, path)
		}
		docs = append(docs, snapshotToDocument(snap))
	}
	return docs, nil
}

// GetDocument implements store.Client.
func (c *Client) GetDocument(ctx context.Context, path, id string) (*types.Document, error) {
	ref, err := c.doc(path, id)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get document '%s' from '%s'", id, path), path, id)
	}
	doc := snapshotToDocument(snap)
	return &doc, nil
}

// CreateDocument implements store.Client.
func (c *Client) CreateDocument(ctx context.Context, path string, data map[string]fieldvalue.Value, id string) (string, error) {
	native := toNative(data)
	if id != "" {
		ref, err := c.doc(path, id)
		if err != nil {
			return "", err
		}
		if _, err := ref.Set(ctx, native); err != nil {
			return "", translate(err, fmt.Sprintf("add document to '%s'", path), path, "")
		}
		return id, nil
	}

	coll, err := c.collection(path)
	if err != nil {
		return "", err
	}
	ref, _, err := coll.Add(ctx, native)
	if err != nil {
		return "", translate(err, fmt.Sprintf("add document to '%s'", path), path, "")
	}
	return ref.ID, nil
}

// MergeUpdateDocument implements store.Client. Each key is a single field
// name, so keys containing dots are not split into nested paths.
func (c *Client) MergeUpdateDocument(ctx context.Context, path, id string, partial map[string]fieldvalue.Value) error {
	ref, err := c.doc(path, id)
	if err != nil {
		return err
	}
	if len(partial) == 0 {
		// ref.Update rejects an empty update list.
		if _, err := ref.Get(ctx); err != nil {
			return translate(err, fmt.Sprintf("update document '%s' in '%s'", id, path), path, id)
		}
		return nil
	}

	updates := make([]firestore.Update, 0, len(partial))
	for k, v := range partial {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: toNativeValue(v)})
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		return translate(err, fmt.Sprintf("update document '%s' in '%s'", id, path), path, id)
	}
	return nil
}

// DeleteDocument implements store.Client.
func (c *Client) DeleteDocument(ctx context.Context, path, id string) error {
	ref, err := c.doc(path, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return translate(err, fmt.Sprintf("delete document '%s' from '%s'", id, path), path, id)
	}
	return nil
}

// Close implements store.Client.
func (c *Client) Close() error {
	return c.fs.Close()
}

// =============================================================================
// Error translation
// =============================================================================

func translateList(err error, path string) error {
	switch status.Code(err) {
	case codes.PermissionDenied:
		return &store.PermissionError{
			Message: fmt.Sprintf("Permission denied. Check your Firestore rules for collection '%s'.", path),
			Err:     err,
		}
	case codes.Unauthenticated:
		return &store.AuthError{
			Message: "Authentication required. Please ensure you are connected and authenticated.",
			Err:     err,
		}
	case codes.NotFound:
		return &store.NotFoundError{Path: path, Err: err}
	}
	return fmt.Errorf("failed to fetch documents from collection '%s': %w", path, err)
}

func translate(err error, action, path, id string) error {
	switch status.Code(err) {
	case codes.PermissionDenied:
		return &store.PermissionError{
			Message: fmt.Sprintf("Permission denied. Cannot %s. Check Firestore rules.", action),
			Err:     err,
		}
	case codes.Unauthenticated:
		return &store.AuthError{
			Message: "Authentication required. Please ensure you are connected and authenticated.",
			Err:     err,
		}
	case codes.NotFound:
		return &store.NotFoundError{Path: path, ID: id, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
