package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/peternagy/fireview/internal/types"
)

// Environment variables holding the client credentials.
const (
	EnvAPIKey            = "FIREBASE_API_KEY"
	EnvAuthDomain        = "FIREBASE_AUTH_DOMAIN"
	EnvStorageBucket     = "FIREBASE_STORAGE_BUCKET"
	EnvMessagingSenderID = "FIREBASE_MESSAGING_SENDER_ID"
	EnvAppID             = "FIREBASE_APP_ID"
	EnvMeasurementID     = "FIREBASE_MEASUREMENT_ID"
)

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// SecretGetter reads a named secret. The credential service satisfies it.
type SecretGetter interface {
	GetSecret(name string) (string, error)
}

// Credentials builds connection configs from environment-sourced values.
type Credentials struct {
	// Lookup reads a variable; nil means os.LookupEnv.
	Lookup func(key string) (string, bool)
	// Secrets, when set, supplies the API key if the environment lacks one.
	Secrets SecretGetter
	// APIKeySecret names the keyring entry consulted for the API key.
	APIKeySecret string
}

// Load merges projectID with the environment credentials. It does not
// validate; see types.ConnectionConfig.MissingFields.
func (c *Credentials) Load(projectID string) types.ConnectionConfig {
	cfg := types.ConnectionConfig{
		ProjectID:         strings.TrimSpace(projectID),
		APIKey:            c.get(EnvAPIKey),
		AuthDomain:        c.get(EnvAuthDomain),
		StorageBucket:     c.get(EnvStorageBucket),
		MessagingSenderID: c.get(EnvMessagingSenderID),
		AppID:             c.get(EnvAppID),
		MeasurementID:     c.get(EnvMeasurementID),
	}
	if cfg.APIKey == "" && c.Secrets != nil && c.APIKeySecret != "" {
		if key, err := c.Secrets.GetSecret(c.APIKeySecret); err == nil {
			cfg.APIKey = key
		}
	}
	return cfg
}

func (c *Credentials) get(key string) string {
	lookup := c.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

// MapLookup adapts a map to the Lookup signature.
func MapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
