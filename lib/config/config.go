// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides optional defaults-file loading for vmasfs.
//
// Configuration is loaded from the file named by the VMASFS_CONFIG
// environment variable, if set. Unlike a daemon with many operators,
// vmasfs is a single-shot mount tool invoked directly from a shell —
// so, unlike stricter config loaders that treat a missing file as an
// error, a missing VMASFS_CONFIG here simply means "use the defaults".
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the handful of defaults vmasfs allows overriding outside
// of its command-line flags.
type Config struct {
	// DefaultDirMode is the permission bits for directories that have
	// no metadata record of their own. It is loaded and validated, but
	// no other package reads it: synthesized intermediate directories
	// and the root always get mode 0755.
	DefaultDirMode os.FileMode `yaml:"default_dir_mode"`

	// ChunkSize overrides the chunked buffer's chunk size, in bytes.
	// Must be a positive multiple of 1024. Changing this does not
	// affect archives written with a different chunk size — it only
	// controls how this process buffers writes in memory.
	ChunkSize int `yaml:"chunk_size"`

	// LogLevel sets the minimum level recorded by the CLI's logger:
	// "debug", "info", "warn", or "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no VMASFS_CONFIG file is
// present, and the base that a loaded file's fields are merged onto.
func Default() *Config {
	return &Config{
		DefaultDirMode: 0o755,
		ChunkSize:      4096,
		LogLevel:       "info",
	}
}

// Load reads the file named by VMASFS_CONFIG, or returns Default() if
// the variable is unset. A set-but-unreadable path is still an error.
func Load() (*Config, error) {
	path := os.Getenv("VMASFS_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging its
// fields onto Default().
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the rest of vmasfs
// cannot safely act on.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkSize%1024 != 0 {
		return fmt.Errorf("chunk_size must be a multiple of 1024, got %d", c.ChunkSize)
	}
	if c.DefaultDirMode&^os.ModePerm != 0 {
		return fmt.Errorf("default_dir_mode must be a permission bitmask, got %o", c.DefaultDirMode)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug/info/warn/error, got %q", c.LogLevel)
	}
	return nil
}
