// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package boot assembles machine configurations and runs the boot
// pipeline.
//
// The pipeline has three phases with a strict order. Assemble turns
// caller options into a Plan: defaults applied, resource slots turned
// into an ordered request list, loading modes validated — no I/O
// happens here. The sequential loader then resolves the plan's
// requests. Finalize reassembles the loaded buffers into a frozen
// Config, enforcing that every boot-critical resource is fully
// resident. Boot drives all three and hands the Config to the machine
// core exactly once, restoring a saved state and delivering the guest
// filesystem manifest when those slots are present, then publishes the
// ready lifecycle event.
//
// Boot-critical slots (BIOS, VGA BIOS, saved state) are forced to
// eager loading regardless of the caller's preference: the core needs
// full synchronous access to them during initialization, so a lazy
// mode request on these slots is silently reinterpreted rather than
// honored or rejected. Everything else may load lazily; a multi-
// gigabyte disk image behind a range buffer lets the machine start
// long before the image would finish downloading.
//
// Configuration mistakes surface as [*ViolationError] before the core
// sees anything: the core is never initialized from a half-valid
// Config. Transfer failures keep the loader's *TransportError type.
// Both are published on the event bus as load-failure events.
package boot
