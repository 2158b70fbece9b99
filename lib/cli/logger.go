// Copyright 2026 The vmasfs Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates a structured logger for the vmasfs CLI. When
// stderr is a terminal, it uses slog.TextHandler for human-readable
// output; otherwise it uses slog.JSONHandler, matching how daemonized
// or scripted invocations expect to parse vmasfs's diagnostics.
func NewLogger(level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// LevelFromString parses a config/flag log level name. Unknown names
// fall back to Info.
func LevelFromString(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
