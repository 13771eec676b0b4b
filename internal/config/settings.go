// Package config loads fireview settings from config.yaml and connection
// credentials from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverFirestore = "firestore"
	DriverMongoDB   = "mongodb"
	DriverMemory    = "memory"
)

// SettingsFileName is the settings file inside the config directory.
const SettingsFileName = "config.yaml"

// Settings holds the fireview configuration.
type Settings struct {
	Store   StoreSettings   `yaml:"store"`
	LLM     LLMSettings     `yaml:"llm"`
	Logging LoggingSettings `yaml:"logging"`
}

// StoreSettings selects and configures the document store backend.
type StoreSettings struct {
	Driver    string            `yaml:"driver"` // firestore, mongodb, memory (default: firestore)
	Firestore FirestoreSettings `yaml:"firestore"`
	MongoDB   MongoDBSettings   `yaml:"mongodb"`
}

// FirestoreSettings configures the Firestore backend.
type FirestoreSettings struct {
	DatabaseID      string `yaml:"database_id"`
	CredentialsFile string `yaml:"credentials_file"`
	EmulatorHost    string `yaml:"emulator_host"`
}

// MongoDBSettings configures the MongoDB backend.
type MongoDBSettings struct {
	URI string `yaml:"uri"`
}

// LLMSettings configures the prompt service.
type LLMSettings struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"` // env var holding the API key (default: OPENAI_API_KEY)
}

// LoggingSettings holds logging settings.
type LoggingSettings struct {
	Env   string `yaml:"env"`   // prod, dev (default: dev)
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	var s Settings
	s.ApplyDefaults()
	return s
}

// LoadSettings reads the settings file. A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config: %w", err)
	}

	s.ApplyDefaults()

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// ApplyDefaults fills empty fields with default values.
func (s *Settings) ApplyDefaults() {
	if s.Store.Driver == "" {
		s.Store.Driver = DriverFirestore
	}
	if s.Store.MongoDB.URI == "" {
		s.Store.MongoDB.URI = "mongodb://localhost:27017"
	}
	if s.LLM.Model == "" {
		s.LLM.Model = "gpt-4o-mini"
	}
	if s.LLM.APIKeyEnv == "" {
		s.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if s.Logging.Env == "" {
		s.Logging.Env = "dev"
	}
}

// Validate checks the settings for correctness.
func (s *Settings) Validate() error {
	switch s.Store.Driver {
	case DriverFirestore, DriverMongoDB, DriverMemory:
	default:
		return fmt.Errorf("store.driver must be one of firestore, mongodb, memory, got %q", s.Store.Driver)
	}
	if s.Store.Driver == DriverMongoDB &&
		!strings.HasPrefix(s.Store.MongoDB.URI, "mongodb://") &&
		!strings.HasPrefix(s.Store.MongoDB.URI, "mongodb+srv://") {
		return fmt.Errorf("store.mongodb.uri must start with mongodb:// or mongodb+srv://")
	}
	switch s.Logging.Env {
	case "prod", "dev", "local":
	default:
		return fmt.Errorf("logging.env must be prod, dev or local, got %q", s.Logging.Env)
	}
	return nil
}

// InitConfigDir sets up the config directory.
func InitConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}
	dir := filepath.Join(configDir, "fireview")
	os.MkdirAll(dir, 0755)
	return dir
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
