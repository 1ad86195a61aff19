// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biostore.
//
// go-biostore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package keyring provides a storage.Backend on top of the operating system
// credential store (macOS Keychain, Secret Service, KWallet, Windows
// Credential Manager, pass, or an encrypted file) via 99designs/keyring.
package keyring

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/99designs/keyring"

	"github.com/jeremyhahn/go-biostore/pkg/storage"
)

// DefaultServiceName is the keyring service entries are filed under.
const DefaultServiceName = "go-biostore"

// Config configures the keyring backend.
type Config struct {
	// ServiceName groups entries in the credential store.
	ServiceName string

	// AllowedBackends restricts which credential stores may be used, by
	// name ("keychain", "secret-service", "kwallet", "wincred", "pass",
	// "file", "keyctl"). Empty allows all available.
	AllowedBackends []string

	// FileDir is the directory for the encrypted file fallback.
	FileDir string

	// FilePassword supplies the password for the encrypted file fallback.
	FilePassword func() (string, error)

	// Ring overrides the opened keyring. Used in tests.
	Ring keyring.Keyring
}

// Storage stores values as keyring items keyed by storage key.
type Storage struct {
	mu     sync.RWMutex
	ring   keyring.Keyring
	closed bool
}

// New opens the configured keyring.
func New(config *Config) (storage.Backend, error) {
	if config == nil {
		config = &Config{}
	}
	if config.Ring != nil {
		return &Storage{ring: config.Ring}, nil
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	kc := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		FileDir:                  config.FileDir,
		LibSecretCollectionName:  serviceName,
		KWalletAppID:             serviceName,
		KWalletFolder:            serviceName,
		WinCredPrefix:            serviceName,
	}
	if config.FilePassword != nil {
		kc.FilePasswordFunc = func(string) (string, error) {
			return config.FilePassword()
		}
	}
	for _, name := range config.AllowedBackends {
		kc.AllowedBackends = append(kc.AllowedBackends, keyring.BackendType(name))
	}

	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("keyring storage: failed to open keyring: %w", err)
	}
	return &Storage{ring: ring}, nil
}

// NewInMemory returns a Storage over keyring's in-memory array keyring.
func NewInMemory() storage.Backend {
	return &Storage{ring: keyring.NewArrayKeyring(nil)}
}

// Get retrieves the item data for key.
func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	item, err := s.ring.Get(key)
	if err != nil {
		return nil, mapError("get", key, err)
	}

	data := make([]byte, len(item.Data))
	copy(data, item.Data)
	return data, nil
}

// Put stores value as the item data for key.
func (s *Storage) Put(key string, value []byte, opts *storage.Options) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	data := make([]byte, len(value))
	copy(data, value)

	item := keyring.Item{
		Key:         key,
		Data:        data,
		Label:       key,
		Description: "go-biostore key material",
	}
	if opts != nil && opts.Label != "" {
		item.Label = opts.Label
	}

	if err := s.ring.Set(item); err != nil {
		return mapError("set", key, err)
	}
	return nil
}

// Delete removes the item for key.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	// Some keyrings treat removing a missing item as success.
	if _, err := s.ring.Get(key); err != nil {
		return mapError("get", key, err)
	}
	if err := s.ring.Remove(key); err != nil {
		return mapError("remove", key, err)
	}
	return nil
}

// List returns the item keys with the given prefix in sorted order.
func (s *Storage) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	all, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("keyring storage: failed to list keys: %w", err)
	}

	keys := make([]string, 0, len(all))
	for _, k := range all {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists checks if an item exists for key.
func (s *Storage) Exists(key string) (bool, error) {
	_, err := s.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Close marks the backend closed. The underlying keyring holds no
// resources that need releasing.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func mapError(op, key string, err error) error {
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("keyring storage: failed to %s key %q: %w", op, key, err)
}
