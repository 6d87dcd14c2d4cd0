// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for docshell.
// It stores the secret part of saved connections (the full connection string,
// including the password) in the OS credential store. The config file only
// ever holds the masked form.
//
// The package supports macOS Keychain, Windows Credential Manager and the Linux
// Secret Service / KWallet, with pass as a fallback. There is no file fallback.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// ErrNotFound is returned when no secret is stored for a connection.
var ErrNotFound = errors.New("no secret stored for connection")

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "docshell"

const connectionPrefix = "connection:"

// Manager provides thread-safe operations for the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the OS keyring.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// NewWithRing wraps an already opened keyring.
func NewWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, fmt.Errorf("secure storage not supported on %s", runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          allowed,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		KeychainTrustApplication: true,
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass' as a fallback: brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

func connectionKey(name string) string { return connectionPrefix + name }

// SaveConnection stores the connection string for a named connection.
func (m *Manager) SaveConnection(name, dsn string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("connection name is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{
		Key:         connectionKey(name),
		Data:        []byte(dsn),
		Label:       "docshell connection " + name,
		Description: "database connection string",
	})
}

// LoadConnection returns the connection string saved for name.
func (m *Manager) LoadConnection(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(connectionKey(name))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	if len(it.Data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return string(it.Data), nil
}

// DeleteConnection removes the secret of a named connection. Missing entries are not an error.
func (m *Manager) DeleteConnection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ring.Remove(connectionKey(name)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Connections lists the names that have a stored secret.
func (m *Manager) Connections() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys, err := m.ring.Keys()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, k := range keys {
		if name, ok := strings.CutPrefix(k, connectionPrefix); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
