// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates a structured logger for CLI command operations.
// When stderr is a terminal, it uses slog.TextHandler for
// human-readable output. When stderr is piped or redirected (CI,
// scripts, integration tests), it uses slog.JSONHandler for
// machine-parseable output. SLIPWAY_DEBUG in the environment lowers
// the level to debug.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := cli.NewLogger().With("command", "boot", "profile", name)
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("SLIPWAY_DEBUG") != "" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
