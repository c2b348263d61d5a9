// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot decodes saved machine state containers.
//
// A saved state travels as an opaque payload whose internal layout
// belongs entirely to the machine core. What this package handles is
// the container around it: snapshots at rest may be zstd-compressed
// (they compress well — guest memory is mostly zeros) and may be
// age-encrypted when they capture sensitive guest content. Decode
// peels both layers by sniffing the stream itself — the age header
// string, the zstd frame magic — so callers never declare what they
// are holding, and hands back the payload the core will restore from.
//
// Encode is the producing side: compress, then encrypt to a set of
// age recipients, in an order Decode reverses. A payload shorter than
// the core's fixed state header is rejected as truncated or foreign.
package snapshot
