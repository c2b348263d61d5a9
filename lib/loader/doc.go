// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package loader drives an ordered list of named resource requests to
// completion, strictly one at a time.
//
// Sequential loading is deliberate: it bounds peak memory and open
// connections when the list includes multi-gigabyte disk images, gives
// progress reporting a monotonically increasing file index, and makes
// partial failure unambiguous — when request k fails, requests k+1..N
// were never started.
//
// Run resolves each request through its buffer strategy, publishes
// transfer progress on the event bus (throttled, with the final tick
// for each file always delivered), and returns exactly once: either
// with every buffer loaded and a completion event published, or with a
// *TransportError identifying the failing request after a failure
// event. There are no retries and no per-request timeouts; cancelling
// the context is the only abort path and surfaces as a transport
// failure.
package loader
