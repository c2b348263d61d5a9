// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package event provides the in-process event bus that carries boot
// progress and lifecycle notifications from the resource pipeline to
// host-application listeners (CLI progress displays, log sinks, test
// observers).
//
// The bus is a thin exchange over a broadcaster: publishers write
// envelopes under a topic, subscribers receive them on a channel that
// is valid until their context is cancelled. Each subscriber gets its
// own queue, so a slow consumer delays only itself.
//
// Topic constants and the payload schemas for every notification
// Slipway emits live here, next to the bus, so producers and consumers
// share one vocabulary.
package event
