// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Slipway packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. These are
// the only place in the test suite where real wall-clock timeouts are
// used; production time reads go through lib/clock.
package testutil
