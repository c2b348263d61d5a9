// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package boot

import "context"

// Core is the machine core as the boot pipeline sees it: the component
// that consumes the frozen configuration and executes the guest.
// Implementations live outside slipway; the pipeline only promises to
// call Init exactly once, RestoreState at most once (after Init, with
// a fully decoded state payload), and Run at most once (after the
// ready signal, when autostart was requested).
type Core interface {
	// Init hands the frozen configuration to the core. Boot-critical
	// buffers are fully resident by the time Init runs; device
	// buffers may still be lazy and the core reads them through the
	// Buffer interface on demand.
	Init(ctx context.Context, config *Config) error

	// RestoreState loads a decoded saved-state payload. The payload
	// layout is the core's own; the pipeline treats it as opaque.
	RestoreState(ctx context.Context, state []byte) error

	// Run starts guest execution and blocks until the guest halts,
	// the context is canceled, or the core fails.
	Run(ctx context.Context) error
}
