// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides optional YAML defaults for vmasfs.
//
// Configuration is loaded from the file named by the VMASFS_CONFIG
// environment variable (via [Load]), or an explicit path (via
// [LoadFile]). There is no ~/.config discovery and no automatic file
// search. Unlike a multi-operator service, a missing VMASFS_CONFIG is
// not an error — [Load] falls back to [Default] so a plain
// `vmasfs archive.zip /mnt` invocation works with zero configuration.
//
// Key exports:
//
//   - [Config] -- default directory mode, chunk size, log level
//   - [Default] -- the built-in values used absent a config file
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other vmasfs packages.
package config
