// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package guestfs

import (
	"io/fs"
	"time"
)

// NodeID identifies a node in the collaborator's own table. IDs are
// lookup keys, not handles: holders own nothing and must not cache
// them across operations.
type NodeID int64

// InvalidNode is returned by Resolve for path components that do not
// exist.
const InvalidNode NodeID = -1

// PathInfo is the result of resolving a path: the node itself, the
// directory containing it, and the leaf name. Node is InvalidNode when
// the leaf does not exist but Parent is still set if its directory
// does; both are InvalidNode when an intermediate component is missing
// or not a directory.
type PathInfo struct {
	Node   NodeID
	Parent NodeID
	Name   string
}

// FileInfo describes one node.
type FileInfo struct {
	Name  string
	Size  int64
	Mode  fs.FileMode
	MTime time.Time
}

// IsDir reports whether the node is a directory.
func (i FileInfo) IsDir() bool { return i.Mode.IsDir() }

// DirEntry is one child in a directory listing.
type DirEntry struct {
	Name string
	Node NodeID
	Mode fs.FileMode
}

// FileSystem is the filesystem collaborator as slipway sees it. The
// file bridge uses Resolve, Open, ReadAll, CreateFile, and Subscribe;
// the FUSE view adds Stat and List; boot hands over the guest tree
// with LoadManifest.
type FileSystem interface {
	// Resolve walks a slash-separated path from the root.
	Resolve(path string) PathInfo

	// Open prepares a file node for reading. It fails for missing
	// nodes and directories; it does not wait for content.
	Open(id NodeID) error

	// ReadAll returns a copy of the node's content. The content must
	// be resident: for nodes whose data is still in flight it fails,
	// and callers wait via Subscribe first.
	ReadAll(id NodeID) ([]byte, error)

	// CreateFile materializes a binary file under parent, replacing
	// any existing file of the same name.
	CreateFile(parent NodeID, name string, data []byte) (NodeID, error)

	// Subscribe registers fn to run once the node's content is
	// resident. fn is invoked exactly once — synchronously when the
	// content is already resident, otherwise from the goroutine that
	// later fulfills it.
	Subscribe(id NodeID, fn func()) error

	// Stat describes a node.
	Stat(id NodeID) (FileInfo, error)

	// List returns a directory's children sorted by name.
	List(id NodeID) ([]DirEntry, error)

	// LoadManifest replaces the tree with one described by a manifest
	// document.
	LoadManifest(data []byte) error
}
