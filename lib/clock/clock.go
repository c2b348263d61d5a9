// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock reads for testability. Production
// code injects Real(); tests inject Fake() with deterministic time
// control.
//
// Slipway uses the clock for rate decisions (progress event throttling)
// and timestamps (download cache records), so the interface carries
// only Now. Code that needs to block on time should take a
// context.Context instead.
package clock

import "time"

// Clock provides the current time. Every production function that
// would call time.Now should accept a Clock parameter (or be a method
// on a struct with a Clock field) instead of calling the time package
// directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
