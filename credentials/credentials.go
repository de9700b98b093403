// Package credentials stores the recognition service API key for the agri CLI.
//
// The key is kept in the system keyring:
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (libsecret)
//
// For CI/testing environments, set AGRI_API_KEY instead; it takes
// precedence over the keyring.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the system keyring.
	keyringService = "agriclassify"
	// keyringUser is the account name used in the system keyring.
	keyringUser = "api-key"

	// EnvAPIKey overrides the stored key.
	EnvAPIKey = "AGRI_API_KEY"
)

// Key sources reported by Resolve.
const (
	SourceEnv     = "env"
	SourceKeyring = "keyring"
)

// Common errors.
var (
	// ErrNoAPIKey is returned when neither the environment nor the keyring holds a key.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrKeyringUnavailable indicates the system keyring is not available.
	ErrKeyringUnavailable = errors.New("system keyring unavailable")
	// ErrEmptyKey is returned when asked to store a blank key.
	ErrEmptyKey = errors.New("API key is empty")
)

// Store reads and writes the API key in the system keyring.
type Store struct {
	mu      sync.Mutex
	service string
	user    string
}

// NewStore creates a store using the default keyring entry.
func NewStore() *Store {
	return &Store{service: keyringService, user: keyringUser}
}

// Get returns the stored key, or ErrNoAPIKey.
func (s *Store) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoAPIKey
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

// Set stores key, replacing any existing one.
func (s *Store) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Set(s.service, s.user, key); err != nil {
		return fmt.Errorf("%w: storing key: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// Clear removes the stored key. Clearing an absent key is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: deleting key: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// Description returns a human-readable description of the keyring backend.
func (s *Store) Description() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}

// Resolve returns the API key and where it came from.
// Priority:
// 1. AGRI_API_KEY environment variable
// 2. System keyring
func (s *Store) Resolve() (key, source string, err error) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		return v, SourceEnv, nil
	}
	key, err = s.Get()
	if err != nil {
		return "", "", err
	}
	return key, SourceKeyring, nil
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
