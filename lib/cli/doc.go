// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the small set of command-line helpers shared by
// vmasfs's single binary: a terminal-aware logger and an error type that
// lets a command pick its own exit code.
package cli
