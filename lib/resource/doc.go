// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package resource provides uniform byte access over boot resources of
// differing residency: firmware images, disk images, saved-state
// snapshots, filesystem manifests.
//
// A resource is described by a [Request]: a unique name, a [Source]
// (in-memory bytes, a local file, or a remote URL), and flags that
// constrain how it may be loaded. The loading mode is resolved as a
// pure function of the request by [ResolveMode]:
//
//   - [ModeMemory]: the source is already resident; Load completes
//     immediately.
//   - [ModeWhole]: the entire resource is read into memory during
//     Load. Chosen below [LazyThreshold], or whenever the request is
//     eager, carries a digest, or names a compressed payload.
//   - [ModeRange]: Load fetches only metadata (total size); ReadAt
//     issues a fresh range fetch per call. Chosen for large resources
//     so the machine can start before a multi-gigabyte disk image
//     finishes downloading.
//
// Every mode implements [Buffer]. Load is idempotent and signals
// readiness exactly once; WriteAt is accepted only for mutable
// backings (in-memory and local-file), and writes never propagate
// back to the source — a range buffer keeps them in an overlay that
// shadows subsequent reads.
//
// Whole loads transparently decompress payloads named *.zst or *.lz4
// and verify an optional BLAKE3 digest. Both features require a fully
// resident buffer, so they are rejected for range mode at resolution
// time. Digests cover the bytes handed to the consumer, after
// decompression.
package resource
