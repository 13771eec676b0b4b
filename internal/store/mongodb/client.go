// Package mongodb backs the store boundary with MongoDB. The project ID
// selects the database and each slash-delimited collection path maps to one
// MongoDB collection of the same name.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/store"
	"github.com/peternagy/fireview/internal/types"
)

// MongoDB server error codes that map onto the store error taxonomy.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// Connector dials MongoDB.
type Connector struct {
	uri string
}

// NewConnector creates a connector for the given mongodb:// or mongodb+srv:// URI.
func NewConnector(uri string) *Connector {
	return &Connector{uri: uri}
}

// Connect implements store.Connector.
func (c *Connector) Connect(ctx context.Context, cfg types.ConnectionConfig) (store.Client, error) {
	if c.uri == "" {
		return nil, fmt.Errorf("URI cannot be empty")
	}
	if !strings.HasPrefix(c.uri, "mongodb://") && !strings.HasPrefix(c.uri, "mongodb+srv://") {
		return nil, fmt.Errorf("invalid URI scheme: must start with mongodb:// or mongodb+srv://")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, translate(err, "ping", "", "")
	}

	return &Client{client: client, db: client.Database(cfg.ProjectID)}, nil
}

// Client wraps a connected *mongo.Client scoped to one database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// ListDocuments implements store.Client.
func (c *Client) ListDocuments(ctx context.Context, path string) ([]types.Document, error) {
	cursor, err := c.db.Collection(path).Find(ctx, bson.M{})
	if err != nil {
		return nil, translate(err, fmt.Sprintf("fetch documents from collection '%s'", path), path, "")
	}
	defer cursor.Close(ctx)

	var docs []types.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode document in '%s': %w", path, err)
		}
		docs = append(docs, toDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, translate(err, fmt.Sprintf("fetch documents from collection '%s'", path), path, "")
	}
	return docs, nil
}

// GetDocument implements store.Client.
func (c *Client) GetDocument(ctx context.Context, path, id string) (*types.Document, error) {
	var raw bson.M
	err := c.db.Collection(path).FindOne(ctx, idFilter(id)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get document '%s' from '%s'", id, path), path, id)
	}
	doc := toDocument(raw)
	return &doc, nil
}

// CreateDocument implements store.Client. Generated IDs are strings so every
// document is addressable the same way regardless of how it was created.
func (c *Client) CreateDocument(ctx context.Context, path string, data map[string]fieldvalue.Value, id string) (string, error) {
	doc := toBSON(data)
	coll := c.db.Collection(path)
	if id == "" {
		id = store.NewDocumentID()
		doc["_id"] = id
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			return "", translate(err, fmt.Sprintf("add document to '%s'", path), path, "")
		}
		return id, nil
	}

	doc["_id"] = id
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, idFilter(id), doc, opts); err != nil {
		return "", translate(err, fmt.Sprintf("add document to '%s'", path), path, "")
	}
	return id, nil
}

// MergeUpdateDocument implements store.Client.
func (c *Client) MergeUpdateDocument(ctx context.Context, path, id string, partial map[string]fieldvalue.Value) error {
	set := toBSON(partial)
	delete(set, "_id")
	if len(set) == 0 {
		n, err := c.db.Collection(path).CountDocuments(ctx, idFilter(id), options.Count().SetLimit(1))
		if err != nil {
			return translate(err, fmt.Sprintf("update document '%s' in '%s'", id, path), path, id)
		}
		if n == 0 {
			return &store.NotFoundError{Path: path, ID: id}
		}
		return nil
	}

	result, err := c.db.Collection(path).UpdateOne(ctx, idFilter(id), bson.M{"$set": set})
	if err != nil {
		return translate(err, fmt.Sprintf("update document '%s' in '%s'", id, path), path, id)
	}
	if result.MatchedCount == 0 {
		return &store.NotFoundError{Path: path, ID: id}
	}
	return nil
}

// DeleteDocument implements store.Client.
func (c *Client) DeleteDocument(ctx context.Context, path, id string) error {
	if _, err := c.db.Collection(path).DeleteOne(ctx, idFilter(id)); err != nil {
		return translate(err, fmt.Sprintf("delete document '%s' from '%s'", id, path), path, id)
	}
	return nil
}

// Close implements store.Client.
func (c *Client) Close() error {
	return c.client.Disconnect(context.Background())
}

func translate(err error, action, path, id string) error {
	var se mongo.ServerError
	if errors.As(err, &se) {
		switch {
		case se.HasErrorCode(codeUnauthorized):
			return &store.PermissionError{
				Message: fmt.Sprintf("Permission denied. Cannot %s.", action),
				Err:     err,
			}
		case se.HasErrorCode(codeAuthenticationFailed):
			return &store.AuthError{
				Message: "Authentication required. Please ensure you are connected and authenticated.",
				Err:     err,
			}
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
