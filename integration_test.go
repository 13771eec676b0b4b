// Integration tests that run the MongoDB backend against a real server using testcontainers
//
// Run with: go test -v -tags=integration ./...
//
// These tests are slower but provide high confidence that the app
// works correctly with a real document store.

//go:build integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/peternagy/fireview/internal/config"
	storemongo "github.com/peternagy/fireview/internal/store/mongodb"
)

const testProject = "fireview_it"

// testContext holds shared test resources
type testContext struct {
	container *tcmongo.MongoDBContainer
	uri       string
	client    *mongo.Client
	app       *App
	events    *notifications
}

// setupTestContainer starts a MongoDB container and an App using the mongodb backend
func setupTestContainer(t *testing.T) *testContext {
	ctx := context.Background()

	// Start MongoDB container
	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err, "Failed to start MongoDB container")

	// Get connection string
	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get connection string")

	// Connect directly for test setup
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")

	settings := config.DefaultSettings()
	settings.Store.Driver = config.DriverMongoDB
	settings.Store.MongoDB.URI = uri

	events := &notifications{}
	app := NewApp(settings,
		WithConnector(storemongo.NewConnector(uri)),
		WithConfigDir(t.TempDir()),
		WithCredentials(&config.Credentials{Lookup: config.MapLookup(testEnv)}),
		WithEmitter(events),
	)
	app.startup(ctx)

	return &testContext{
		container: container,
		uri:       uri,
		client:    client,
		app:       app,
		events:    events,
	}
}

// teardown cleans up test resources
func (tc *testContext) teardown(t *testing.T) {
	ctx := context.Background()

	if tc.client != nil {
		tc.client.Disconnect(ctx)
	}

	if tc.app != nil {
		tc.app.shutdown(ctx)
	}

	if tc.container != nil {
		tc.container.Terminate(ctx)
	}
}

// seedTestData inserts test documents into a collection
func (tc *testContext) seedTestData(t *testing.T, collName string, docs []bson.M) {
	ctx := context.Background()
	coll := tc.client.Database(testProject).Collection(collName)

	var documents []interface{}
	for _, doc := range docs {
		documents = append(documents, doc)
	}

	_, err := coll.InsertMany(ctx, documents)
	require.NoError(t, err, "Failed to seed test data")
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestIntegration_Connect(t *testing.T) {
	tc := setupTestContainer(t)
	defer tc.teardown(t)

	err := tc.app.Connect(context.Background(), testProject)
	assert.NoError(t, err, "Should connect successfully")
	assert.True(t, tc.app.GetConnectionStatus().Connected, "Should be connected")

	err = tc.app.Disconnect()
	assert.NoError(t, err, "Should disconnect successfully")
	assert.False(t, tc.app.GetConnectionStatus().Connected, "Should be disconnected")
}

// =============================================================================
// Document Tests
// =============================================================================

func TestIntegration_FetchConvertsNativeValues(t *testing.T) {
	tc := setupTestContainer(t)
	defer tc.teardown(t)
	ctx := context.Background()

	oid := primitive.NewObjectID()
	tc.seedTestData(t, "users", []bson.M{
		{"_id": oid, "name": "Alice", "age": int32(30), "joined": primitive.NewDateTimeFromTime(oid.Timestamp())},
		{"_id": "bob", "name": "Bob", "tags": bson.A{"admin", "ops"}},
	})

	require.NoError(t, tc.app.Connect(ctx, testProject))
	_, err := tc.app.AddCollection(ctx, "users")
	require.NoError(t, err)

	docs := tc.app.GetDocuments(FilterOptions{})
	require.Len(t, docs, 2)

	byID := make(map[string]Document)
	for _, d := range docs {
		byID[d.ID] = d
	}
	alice, ok := byID[oid.Hex()]
	require.True(t, ok, "ObjectID is exposed as its hex string")
	assert.Equal(t, int64(30), alice.Data["age"].Int64())
	assert.True(t, alice.Data["joined"].Time().Equal(oid.Timestamp()))

	filtered := tc.app.GetDocuments(FilterOptions{Field: "tags", Value: "OPS"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "bob", filtered[0].ID)

	// ObjectID documents are addressable by their hex ID.
	require.NoError(t, tc.app.UpdateDocument(ctx, "users", oid.Hex(), `{"age": 31}`))
	doc, err := tc.app.GetDocument(ctx, "users", oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(31), doc.Data["age"].Int64())
}

func TestIntegration_DocumentLifecycle(t *testing.T) {
	tc := setupTestContainer(t)
	defer tc.teardown(t)
	ctx := context.Background()

	require.NoError(t, tc.app.Connect(ctx, testProject))
	_, err := tc.app.AddCollection(ctx, "items")
	require.NoError(t, err)

	id, err := tc.app.AddDocument(ctx, "items", `{"name":"Widget","qty":3}`, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// Add with an explicit ID replaces the document.
	_, err = tc.app.AddDocument(ctx, "items", `{"name":"Gadget"}`, id)
	require.NoError(t, err)
	doc, err := tc.app.GetDocument(ctx, "items", id)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", doc.Data["name"].Str())
	_, hasQty := doc.Data["qty"]
	assert.False(t, hasQty, "upsert replaces the whole document")

	err = tc.app.UpdateDocument(ctx, "items", "missing", `{"qty":1}`)
	assert.Error(t, err, "Update of a missing document fails")
	err = tc.app.UpdateDocument(ctx, "items", "missing", `{}`)
	assert.Error(t, err, "Update with no fields still requires the document")
	assert.NoError(t, tc.app.UpdateDocument(ctx, "items", id, `{}`))

	require.NoError(t, tc.app.DeleteDocument(ctx, "items", id))
	assert.Empty(t, tc.app.GetDocuments(FilterOptions{}))

	count, err := tc.client.Database(testProject).Collection("items").CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

// =============================================================================
// Import Tests
// =============================================================================

func TestIntegration_BulkImport(t *testing.T) {
	tc := setupTestContainer(t)
	defer tc.teardown(t)
	ctx := context.Background()

	require.NoError(t, tc.app.Connect(ctx, testProject))
	_, err := tc.app.AddCollection(ctx, "people")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "people.json")
	payload := `[{"id":"p1","name":"Ann"},{"name":"Ben"},{"id":42,"name":"Cat","born":"1990-01-01"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	result, err := tc.app.ImportFile(ctx, "people", path, false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)

	docs := tc.app.GetDocuments(FilterOptions{})
	assert.Len(t, docs, 3)

	var raw bson.M
	err = tc.client.Database(testProject).Collection("people").FindOne(ctx, bson.M{"_id": "p1"}).Decode(&raw)
	require.NoError(t, err)
	assert.Equal(t, "Ann", raw["name"])
	_, hasID := raw["id"]
	assert.False(t, hasID, "id key is stripped from the stored fields")

	count, err := tc.client.Database(testProject).Collection("people").CountDocuments(ctx, bson.M{"_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "numeric id is not used as the document ID")
}
