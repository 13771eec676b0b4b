package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/peternagy/fireview/internal/config"
	"github.com/peternagy/fireview/internal/connection"
	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/credential"
	"github.com/peternagy/fireview/internal/debug"
	"github.com/peternagy/fireview/internal/document"
	"github.com/peternagy/fireview/internal/export"
	"github.com/peternagy/fireview/internal/importer"
	"github.com/peternagy/fireview/internal/llm"
	llmopenai "github.com/peternagy/fireview/internal/llm/openai"
	"github.com/peternagy/fireview/internal/schema"
	"github.com/peternagy/fireview/internal/storage"
	"github.com/peternagy/fireview/internal/store"
	"github.com/peternagy/fireview/internal/store/firestore"
	"github.com/peternagy/fireview/internal/store/memory"
	"github.com/peternagy/fireview/internal/store/mongodb"
	"github.com/peternagy/fireview/internal/summary"
	"github.com/peternagy/fireview/internal/types"
)

// =============================================================================
// Type Re-exports
// =============================================================================

type ConnectionStatus = types.ConnectionStatus
type CollectionEntry = types.CollectionEntry
type Document = types.Document
type FilterOptions = types.FilterOptions
type ImportResult = types.ImportResult
type SchemaResult = types.SchemaResult

// =============================================================================
// App - Thin Facade over the services
// =============================================================================

// App struct holds the application state and services
type App struct {
	settings   config.Settings
	configDir  string
	connector  store.Connector
	summarizer llm.Summarizer
	creds      connection.CredentialSource

	state       *core.Session
	storage     *storage.Service
	credential  *credential.Service
	collections *storage.CollectionService
	connection  *connection.Service
	document    *document.Service
	importer    *importer.Service
	summary     *summary.Service
	schema      *schema.Service
	export      *export.Service
}

// Option customizes an App before startup.
type Option func(*App)

// WithConnector replaces the store connector chosen from the settings.
func WithConnector(c store.Connector) Option {
	return func(a *App) { a.connector = c }
}

// WithSummarizer replaces the prompt service chosen from the settings.
func WithSummarizer(s llm.Summarizer) Option {
	return func(a *App) { a.summarizer = s }
}

// WithConfigDir stores local state in dir instead of the user config directory.
func WithConfigDir(dir string) Option {
	return func(a *App) { a.configDir = dir }
}

// WithCredentials replaces the environment credential source.
func WithCredentials(c connection.CredentialSource) Option {
	return func(a *App) { a.creds = c }
}

// WithEmitter sets where notifications and progress events go.
func WithEmitter(e core.EventEmitter) Option {
	return func(a *App) { a.state.Emitter = e }
}

// NewApp creates a new App instance
func NewApp(settings config.Settings, opts ...Option) *App {
	a := &App{
		settings:   settings,
		state:      core.NewSession(),
		credential: credential.NewService(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// startup wires the services and resumes the last session.
func (a *App) startup(ctx context.Context) {
	if a.configDir == "" {
		a.configDir = config.InitConfigDir()
	}
	a.state.ConfigDir = a.configDir
	a.storage = storage.NewService(a.configDir)

	if a.connector == nil {
		a.connector = newConnector(a.settings)
	}
	if a.summarizer == nil {
		a.summarizer = a.newSummarizer()
	}
	if a.creds == nil {
		a.creds = &config.Credentials{
			Secrets:      a.credential,
			APIKeySecret: credential.SecretFirebaseAPIKey,
		}
	}

	a.collections = storage.NewCollectionService(a.storage)
	a.connection = connection.NewService(a.state, a.connector, a.creds, a.storage, a.collections)
	a.document = document.NewService(a.state)
	a.importer = importer.NewService(a.state, a.document)
	a.summary = summary.NewService(a.state, a.summarizer)
	a.schema = schema.NewService(a.state)
	a.export = export.NewService(a.state)

	a.collections.OnSelect(a.onCollectionSelected)

	if err := a.connection.Resume(ctx); err != nil {
		debug.LogConnection("Resume failed", zap.Error(err))
	}
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	if client := a.state.Disconnect(); client != nil {
		if err := client.Close(); err != nil {
			debug.LogConnection("Failed to close client on shutdown", zap.Error(err))
		}
	}
	debug.Sync()
}

// onCollectionSelected keeps the document cache on the selected collection.
func (a *App) onCollectionSelected(ctx context.Context, name string) {
	if name == "" {
		a.document.Clear()
		return
	}
	if a.state.IsConnected() {
		_ = a.document.Fetch(ctx, name)
	}
}

func newConnector(s config.Settings) store.Connector {
	switch s.Store.Driver {
	case config.DriverMongoDB:
		return mongodb.NewConnector(s.Store.MongoDB.URI)
	case config.DriverMemory:
		return memory.New().Connector(nil)
	default:
		return firestore.NewConnector(firestore.Options{
			DatabaseID:      s.Store.Firestore.DatabaseID,
			CredentialsFile: s.Store.Firestore.CredentialsFile,
			EmulatorHost:    s.Store.Firestore.EmulatorHost,
		})
	}
}

// newSummarizer returns nil when no API key is available; summarizing then
// fails with a service error.
func (a *App) newSummarizer() llm.Summarizer {
	apiKey := os.Getenv(a.settings.LLM.APIKeyEnv)
	if apiKey == "" {
		apiKey, _ = a.credential.GetSecret(credential.SecretOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil
	}
	return llmopenai.NewSummarizer(&llmopenai.Config{
		APIKey:  apiKey,
		BaseURL: a.settings.LLM.BaseURL,
		Model:   a.settings.LLM.Model,
		Logger:  debug.Named(debug.CategorySummary),
	})
}

// =============================================================================
// Connection Methods
// =============================================================================

// Connect connects to projectID and loads the selected collection, if any.
func (a *App) Connect(ctx context.Context, projectID string) error {
	if err := a.connection.Connect(ctx, projectID); err != nil {
		return err
	}
	if selected := a.collections.Selected(); selected != "" {
		_ = a.document.Fetch(ctx, selected)
	}
	return nil
}

func (a *App) Disconnect() error {
	return a.connection.Disconnect()
}

func (a *App) GetConnectionStatus() ConnectionStatus {
	return a.connection.Status()
}

// =============================================================================
// Collection Methods
// =============================================================================

func (a *App) ListCollections() []CollectionEntry {
	return a.collections.List()
}

func (a *App) AddCollection(ctx context.Context, name string) (bool, error) {
	return a.collections.Add(ctx, name)
}

func (a *App) RemoveCollection(ctx context.Context, name string) error {
	return a.collections.Remove(ctx, name)
}

func (a *App) SelectCollection(ctx context.Context, name string) error {
	return a.collections.Select(ctx, name)
}

func (a *App) SelectedCollection() string {
	return a.collections.Selected()
}

// =============================================================================
// Document Methods
// =============================================================================

// RefreshDocuments refetches the selected collection.
func (a *App) RefreshDocuments(ctx context.Context) error {
	selected := a.collections.Selected()
	if selected == "" {
		return &core.ValidationError{Field: "collection", Message: "No collection selected."}
	}
	return a.document.Fetch(ctx, selected)
}

func (a *App) GetDocuments(opts FilterOptions) []Document {
	return a.document.Filtered(opts)
}

func (a *App) GetFetchError() string {
	return a.document.FetchError()
}

func (a *App) GetDocument(ctx context.Context, collection, docID string) (*Document, error) {
	return a.document.Get(ctx, collection, docID)
}

// AddDocument parses jsonDoc and creates the document. An empty docID lets
// the store assign one.
func (a *App) AddDocument(ctx context.Context, collection, jsonDoc, docID string) (string, error) {
	data, err := document.ParseFields(jsonDoc)
	if err != nil {
		return "", err
	}
	return a.document.Add(ctx, collection, data, docID)
}

func (a *App) UpdateDocument(ctx context.Context, collection, docID, jsonFields string) error {
	partial, err := document.ParseFields(jsonFields)
	if err != nil {
		return err
	}
	return a.document.Update(ctx, collection, docID, partial)
}

func (a *App) DeleteDocument(ctx context.Context, collection, docID string) error {
	return a.document.Delete(ctx, collection, docID)
}

// =============================================================================
// Import / Export Methods
// =============================================================================

func (a *App) ImportJSON(ctx context.Context, collection, payload string) (ImportResult, error) {
	return a.importer.ImportJSON(ctx, collection, payload)
}

// ImportFile reads a .json file and imports its documents. With ndjson set
// the file may hold one object per line instead of an array.
func (a *App) ImportFile(ctx context.Context, collection, filePath string, ndjson bool) (ImportResult, error) {
	payload, err := importer.ReadImportFile(filePath, ndjson)
	if err != nil {
		a.state.NotifyError("Bulk Import", err.Error())
		return ImportResult{Errors: []string{}}, err
	}
	return a.importer.ImportJSON(ctx, collection, payload)
}

func (a *App) ExportDocuments(filePath string, opts export.Options) (string, int, error) {
	return a.export.ExportCached(filePath, opts)
}

// =============================================================================
// Schema / Summary Methods
// =============================================================================

func (a *App) InferSchema() *SchemaResult {
	return a.schema.InferCachedSchema()
}

func (a *App) SummarizeCollection(ctx context.Context, collection string) (string, error) {
	return a.summary.Summarize(ctx, collection)
}

func (a *App) GetSummary() string {
	return a.summary.Current()
}

// =============================================================================
// Secret Methods
// =============================================================================

func (a *App) SetSecret(name, value string) error {
	return a.credential.SetSecret(name, value)
}

func (a *App) DeleteSecret(name string) error {
	return a.credential.DeleteSecret(name)
}
