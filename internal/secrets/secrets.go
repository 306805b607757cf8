// Package secrets keeps the language model API key in the OS keyring so it
// never has to live in trialq.yaml.
package secrets

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName namespaces trialq entries in the keyring.
const ServiceName = "trialq"

// KeyLLMAPIKey is the keyring item holding the provider API key.
const KeyLLMAPIKey = "llm_api_key"

// ErrNotSet is returned when no key is stored.
var ErrNotSet = errors.New("secret not set")

// Store reads and writes trialq secrets.
type Store struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// New wraps an opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the native keyring for the current platform.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: nativeBackends(),
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return New(ring), nil
}

func nativeBackends() []keyring.BackendType {
	switch runtime.GOOS {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend}
	default:
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	}
}

// SetLLMKey stores the provider API key.
func (s *Store) SetLLMKey(key string) error {
	if key == "" {
		return errors.New("api key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Set(keyring.Item{
		Key:         KeyLLMAPIKey,
		Data:        []byte(key),
		Label:       "trialq LLM API key",
		Description: "API key for the configured language model provider",
	})
}

// LLMKey returns the stored provider API key, or ErrNotSet.
func (s *Store) LLMKey() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, err := s.ring.Get(KeyLLMAPIKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotSet
		}
		return "", err
	}
	if len(item.Data) == 0 {
		return "", ErrNotSet
	}
	return string(item.Data), nil
}

// DeleteLLMKey removes the stored key. Deleting a missing key is not an
// error.
func (s *Store) DeleteLLMKey() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ring.Remove(KeyLLMAPIKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Mask shows the first and last four characters of a key.
func Mask(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
