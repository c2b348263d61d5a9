// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse exposes a guest filesystem as a read-only FUSE mount,
// so host tools can inspect the tree a machine boots from — or is
// writing to — with ordinary file commands.
//
// The mount maps the guest tree one-to-one: guest paths are mount
// paths. Nodes hold paths, never collaborator node ids: ids are
// lookup keys the collaborator may reassign when a new manifest
// replaces the tree, so every FUSE operation re-resolves its path.
//
// # Read Path
//
// Reads fetch the node's full content from the collaborator and slice
// out the requested window. Content still in flight (a manifest entry
// whose bytes the loader has not delivered yet) reads as EAGAIN until
// fulfillment. The kernel page cache is left disabled for file
// content: the machine may replace a file through the bridge while
// the mount is live.
//
// # Write Path
//
// Not implemented. The guest mutates its tree through the bridge, not
// through the host mount; mutation through FUSE would bypass the
// bridge's logging and callback contract. Write opens fail with
// EROFS.
package fuse
