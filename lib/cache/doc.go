// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache stores whole-resource downloads on disk so repeated
// boots skip the transfer. The original design ran inside a browser
// and leaned on its HTTP cache; a native host has none, so slipway
// carries its own.
//
// Entries are keyed by a BLAKE3 keyed hash of the source URL. Each
// entry is a pair of files: the raw payload and a CBOR metadata record
// carrying the URL, the server's ETag validator, the payload size, and
// an integrity digest. Corrupt entries are detected on read, treated
// as misses, and removed.
//
// The cache is consulted by the HTTP fetcher for whole-resource
// fetches only; range fetches always go to the network. A cache
// failure is never fatal — loads proceed uncached.
package cache
