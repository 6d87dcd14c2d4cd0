// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores docshell configuration in the XDG config dir.
// Only non-secret settings are kept here; connection secrets go to the OS keychain.
// Environment variables override the file after it is loaded.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joeshaw/envdecode"

	"seedfast/docshell/internal/xdg"
)

const (
	DefaultLogLevel       = "info"
	DefaultCallTimeout    = 30 * time.Second
	DefaultQueueHighWater = 64
	DefaultPageSize       = 50
)

// Config holds non-sensitive settings.
type Config struct {
	LogLevel string `json:"log_level"`
	// CallTimeout bounds each backend call, as a Go duration ("30s").
	CallTimeout    string       `json:"call_timeout"`
	QueueHighWater int          `json:"queue_high_water"`
	PageSize       int          `json:"page_size"`
	Connections    []Connection `json:"connections,omitempty"`
}

// Connection is a saved connection. URI is masked; the real one lives in the keychain.
type Connection struct {
	Name     string `json:"name"`
	Backend  string `json:"backend"`
	URI      string `json:"uri"`
	Database string `json:"database,omitempty"`
}

// env holds the overrides read with envdecode.
type env struct {
	LogLevel       string        `env:"DOCSHELL_LOG_LEVEL"`
	CallTimeout    time.Duration `env:"DOCSHELL_CALL_TIMEOUT,strict"`
	QueueHighWater int           `env:"DOCSHELL_QUEUE_HIGH_WATER,strict"`
	PageSize       int           `env:"DOCSHELL_PAGE_SIZE,strict"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		LogLevel:       DefaultLogLevel,
		CallTimeout:    DefaultCallTimeout.String(),
		QueueHighWater: DefaultQueueHighWater,
		PageSize:       DefaultPageSize,
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file yields defaults. Environment
// overrides are applied in both cases.
func Load() (Config, error) {
	c := Defaults()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	c.fill()
	return c, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("environment overrides: %w", err)
	}
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
	if e.CallTimeout > 0 {
		c.CallTimeout = e.CallTimeout.String()
	}
	if e.QueueHighWater > 0 {
		c.QueueHighWater = e.QueueHighWater
	}
	if e.PageSize > 0 {
		c.PageSize = e.PageSize
	}
	return nil
}

// fill replaces zero values left by a partial file with defaults.
func (c *Config) fill() {
	d := Defaults()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.CallTimeout == "" {
		c.CallTimeout = d.CallTimeout
	}
	if c.QueueHighWater <= 0 {
		c.QueueHighWater = d.QueueHighWater
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
}

// Timeout parses CallTimeout, falling back to the default when it is invalid.
func (c Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil || d <= 0 {
		return DefaultCallTimeout
	}
	return d
}

// Connection returns the saved connection with the given name.
func (c Config) Connection(name string) (Connection, bool) {
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return Connection{}, false
}

// PutConnection adds or replaces a saved connection, keeping the list sorted by name.
func (c *Config) PutConnection(conn Connection) {
	for i := range c.Connections {
		if c.Connections[i].Name == conn.Name {
			c.Connections[i] = conn
			return
		}
	}
	c.Connections = append(c.Connections, conn)
	sort.Slice(c.Connections, func(i, j int) bool { return c.Connections[i].Name < c.Connections[j].Name })
}

// RemoveConnection deletes a saved connection and reports whether it existed.
func (c *Config) RemoveConnection(name string) bool {
	for i := range c.Connections {
		if c.Connections[i].Name == name {
			c.Connections = append(c.Connections[:i], c.Connections[i+1:]...)
			return true
		}
	}
	return false
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
