// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package guestfs defines the contract between slipway and the
// filesystem engine that owns a guest's file tree, plus a reference
// in-memory implementation.
//
// The engine's internals — inode storage, path indexing — belong to
// the collaborator. Consumers hold opaque [NodeID] values obtained
// from Resolve and never cache them beyond a single operation. File
// content may lag behind the tree: a node can exist with its data
// still in flight (for example backed by a lazily fetched disk image),
// and readers wait for it through single-fire Subscribe registrations.
//
// [MemFS] implements the contract entirely in memory. It backs tests,
// the FUSE view, and hosts that embed a guest filesystem without a
// machine core. Trees are populated directly (CreateFile, Mkdir,
// CreatePending) or from a manifest produced by a guest image builder.
//
// Errors returned by MemFS wrap the containerd errdefs sentinels
// (ErrNotFound, ErrInvalidArgument, ...), which keeps them distinct
// from the file bridge's own caller-facing error values.
package guestfs
