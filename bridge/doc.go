// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge translates host-application file operations into
// guest-filesystem calls.
//
// The guest filesystem addresses content by opaque node IDs and
// signals deferred content through per-node data-ready registrations.
// Host applications want neither: they have path strings and expect an
// answer delivered to a callback. The bridge sits between the two. It
// resolves paths through the filesystem's own index, masks node IDs
// entirely, and adapts the filesystem's registration mechanism into a
// uniform asynchronous contract: every callback fires exactly once, on
// its own goroutine, with exactly one of (result, error) set — even
// when the underlying operation completed synchronously.
//
// [Bridge] is the single type. CreateFile materializes a binary file
// under an existing directory; ReadFile returns a file's full content,
// waiting if the content is still arriving (for example, a file backed
// by a lazily loaded disk image). Path resolution failures surface as
// [*NotFoundError]; failures inside the filesystem itself pass through
// the callback unchanged. The bridge holds no state of its own, so one
// value may be shared freely across goroutines.
//
// Rename, delete, and directory listing are deliberately absent: the
// bridge covers the host↔guest transfer surface only, and everything
// else remains a direct filesystem concern.
package bridge
