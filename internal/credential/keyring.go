// Package credential stores API secrets in the OS keyring.
package credential

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const keyringService = "fireview"

// Secret names stored under the fireview keyring service.
const (
	SecretFirebaseAPIKey = "firebase-api-key"
	SecretOpenAIAPIKey   = "openai-api-key"
)

// Service handles secret storage in the OS keyring.
type Service struct{}

// NewService creates a new credential service.
func NewService() *Service {
	return &Service{}
}

// SetSecret stores a secret in the OS keyring. An empty value deletes it.
func (s *Service) SetSecret(name, value string) error {
	if value == "" {
		return s.DeleteSecret(name)
	}
	return keyring.Set(keyringService, name, value)
}

// GetSecret retrieves a secret. A missing secret yields "" and no error.
func (s *Service) GetSecret(name string) (string, error) {
	value, err := keyring.Get(keyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return value, err
}

// DeleteSecret removes a secret from the OS keyring.
func (s *Service) DeleteSecret(name string) error {
	err := keyring.Delete(keyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
