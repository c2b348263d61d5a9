// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Slipway's standard CBOR encoding configuration.
//
// Slipway uses two serialization formats with a clear boundary:
//
//   - JSON (and JSONC on disk) for authored interfaces: machine
//     profiles, filesystem manifests, CLI --json output.
//   - CBOR for machine-written records: download cache metadata and
//     any other state Slipway persists for itself.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Slipway package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC
// 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, so cache records can be compared and content-addressed.
//
// For buffer-oriented operations (metadata files):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// Types that are only ever serialized as CBOR use `cbor` struct tags;
// types that also serve JSON use `json` tags and rely on fxamacker's
// json-tag fallback. Never use both tags on the same field.
package codec
