// Package memory is an in-process document store. It backs the "memory"
// driver for offline demos and is the store used by service tests, which
// inject failures through FailFunc and read call counts through Calls.
package memory

import (
	"context"
	"sync"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/store"
	"github.com/peternagy/fireview/internal/types"
)

// Op names a client operation for failure injection and call counting.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Store holds collections keyed by path. One Store may hand out many clients.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]fieldvalue.Value
	order       map[string][]string
	calls       map[Op]int

	// FailFunc, when set, is consulted before every operation; a non-nil
	// return is surfaced as the operation's error.
	FailFunc func(op Op, path, id string) error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]fieldvalue.Value),
		order:       make(map[string][]string),
		calls:       make(map[Op]int),
	}
}

// Connector returns a store.Connector whose clients share this store.
// The connect hook may reject a configuration.
func (s *Store) Connector(hook func(cfg types.ConnectionConfig) error) store.Connector {
	return store.ConnectorFunc(func(ctx context.Context, cfg types.ConnectionConfig) (store.Client, error) {
		if hook != nil {
			if err := hook(cfg); err != nil {
				return nil, err
			}
		}
		return &Client{store: s}, nil
	})
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// ResetCalls zeroes the call counters.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[Op]int)
}

// Seed inserts a document directly, bypassing counters and failure hooks.
func (s *Store) Seed(path, id string, data map[string]fieldvalue.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(path, id, data)
}

func (s *Store) begin(op Op, path, id string) error {
	s.mu.Lock()
	s.calls[op]++
	fail := s.FailFunc
	s.mu.Unlock()
	if fail != nil {
		return fail(op, path, id)
	}
	return nil
}

func (s *Store) put(path, id string, data map[string]fieldvalue.Value) {
	coll, ok := s.collections[path]
	if !ok {
		coll = make(map[string]map[string]fieldvalue.Value)
		s.collections[path] = coll
	}
	if _, exists := coll[id]; !exists {
		s.order[path] = append(s.order[path], id)
	}
	coll[id] = copyFields(data)
}

// Client is a handle onto a Store.
type Client struct {
	store  *Store
	closed bool
	mu     sync.Mutex
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ListDocuments implements store.Client. Documents come back in insertion order.
func (c *Client) ListDocuments(ctx context.Context, path string) ([]types.Document, error) {
	if err := c.store.begin(OpList, path, ""); err != nil {
		return nil, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	coll := c.store.collections[path]
	docs := make([]types.Document, 0, len(coll))
	for _, id := range c.store.order[path] {
		data, ok := coll[id]
		if !ok {
			continue
		}
		docs = append(docs, types.Document{ID: id, Data: copyFields(data)})
	}
	return docs, nil
}

// GetDocument implements store.Client.
func (c *Client) GetDocument(ctx context.Context, path, id string) (*types.Document, error) {
	if err := c.store.begin(OpGet, path, id); err != nil {
		return nil, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	data, ok := c.store.collections[path][id]
	if !ok {
		return nil, nil
	}
	return &types.Document{ID: id, Data: copyFields(data)}, nil
}

// CreateDocument implements store.Client.
func (c *Client) CreateDocument(ctx context.Context, path string, data map[string]fieldvalue.Value, id string) (string, error) {
	if err := c.store.begin(OpCreate, path, id); err != nil {
		return "", err
	}
	if id == "" {
		id = store.NewDocumentID()
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.put(path, id, data)
	return id, nil
}

// MergeUpdateDocument implements store.Client.
func (c *Client) MergeUpdateDocument(ctx context.Context, path, id string, partial map[string]fieldvalue.Value) error {
	if err := c.store.begin(OpUpdate, path, id); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	existing, ok := c.store.collections[path][id]
	if !ok {
		return &store.NotFoundError{Path: path, ID: id}
	}
	for k, v := range partial {
		existing[k] = v
	}
	return nil
}

// DeleteDocument implements store.Client.
func (c *Client) DeleteDocument(ctx context.Context, path, id string) error {
	if err := c.store.begin(OpDelete, path, id); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if coll, ok := c.store.collections[path]; ok {
		delete(coll, id)
	}
	order := c.store.order[path]
	for i, existing := range order {
		if existing == id {
			c.store.order[path] = append(order[:i:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// Close implements store.Client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func copyFields(data map[string]fieldvalue.Value) map[string]fieldvalue.Value {
	out := make(map[string]fieldvalue.Value, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
