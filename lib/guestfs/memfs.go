// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package guestfs

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/containerd/errdefs"

	"github.com/slipway-systems/slipway/lib/clock"
)

// MemFS is the reference in-memory FileSystem. It is safe for
// concurrent use; data-ready callbacks run outside its lock so they
// may call back into the filesystem.
type MemFS struct {
	clock clock.Clock

	mu     sync.Mutex
	nodes  map[NodeID]*node
	nextID NodeID
	root   NodeID
}

type node struct {
	id    NodeID
	name  string
	dir   bool
	mtime time.Time

	// File content. ready is false while the content is still in
	// flight (a pending node); size carries the declared size until
	// then.
	data  []byte
	size  int64
	ready bool

	// Directory children.
	children map[string]NodeID

	// Single-fire data-ready registrations, drained on fulfillment.
	waiters []func()
}

var _ FileSystem = (*MemFS)(nil)

// NewMemFS returns an empty filesystem holding only the root
// directory. A nil clk means clock.Real().
func NewMemFS(clk clock.Clock) *MemFS {
	if clk == nil {
		clk = clock.Real()
	}
	m := &MemFS{
		clock: clk,
		nodes: make(map[NodeID]*node),
	}
	m.root = m.addNode(&node{
		name:     "",
		dir:      true,
		ready:    true,
		mtime:    clk.Now(),
		children: map[string]NodeID{},
	})
	return m
}

// Root returns the root directory's node id.
func (m *MemFS) Root() NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root
}

// addNode assigns the next id and registers the node. Callers hold
// m.mu (except during construction).
func (m *MemFS) addNode(n *node) NodeID {
	n.id = m.nextID
	m.nextID++
	m.nodes[n.id] = n
	return n.id
}

// Resolve walks path from the root. See PathInfo for the miss
// conventions.
func (m *MemFS) Resolve(rawPath string) PathInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	cleaned := path.Clean("/" + rawPath)
	if cleaned == "/" {
		return PathInfo{Node: m.root, Parent: InvalidNode, Name: ""}
	}

	components := strings.Split(strings.TrimPrefix(cleaned, "/"), "/")
	current := m.root
	parent := InvalidNode
	for i, component := range components {
		dir := m.nodes[current]
		if !dir.dir {
			return PathInfo{Node: InvalidNode, Parent: InvalidNode, Name: components[len(components)-1]}
		}
		child, ok := dir.children[component]
		if !ok {
			if i == len(components)-1 {
				// Parent exists; only the leaf is missing.
				return PathInfo{Node: InvalidNode, Parent: current, Name: component}
			}
			return PathInfo{Node: InvalidNode, Parent: InvalidNode, Name: components[len(components)-1]}
		}
		parent = current
		current = child
	}
	return PathInfo{Node: current, Parent: parent, Name: components[len(components)-1]}
}

// Open prepares a file node for reading.
func (m *MemFS) Open(id NodeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("opening node %d: %w", id, errdefs.ErrNotFound)
	}
	if n.dir {
		return fmt.Errorf("opening node %d: is a directory: %w", id, errdefs.ErrInvalidArgument)
	}
	return nil
}

// ReadAll returns a copy of the node's resident content.
func (m *MemFS) ReadAll(id NodeID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("reading node %d: %w", id, errdefs.ErrNotFound)
	}
	if n.dir {
		return nil, fmt.Errorf("reading node %d: is a directory: %w", id, errdefs.ErrInvalidArgument)
	}
	if !n.ready {
		return nil, fmt.Errorf("reading node %d: content not resident: %w", id, errdefs.ErrUnavailable)
	}
	return bytes.Clone(n.data), nil
}

// CreateFile materializes a binary file under parent. An existing file
// of the same name is replaced; an existing directory is not.
func (m *MemFS) CreateFile(parent NodeID, name string, data []byte) (NodeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := m.childTarget(parent, name)
	if err != nil {
		return InvalidNode, err
	}
	if existingID, ok := dir.children[name]; ok {
		existing := m.nodes[existingID]
		if existing.dir {
			return InvalidNode, fmt.Errorf("creating file %q: a directory with that name exists: %w",
				name, errdefs.ErrAlreadyExists)
		}
		existing.data = bytes.Clone(data)
		existing.size = int64(len(data))
		existing.ready = true
		existing.mtime = m.now()
		return existingID, nil
	}

	id := m.addNode(&node{
		name:  name,
		data:  bytes.Clone(data),
		size:  int64(len(data)),
		ready: true,
		mtime: m.now(),
	})
	dir.children[name] = id
	return id, nil
}

// CreatePending creates a file node whose content is not resident yet.
// Readers block on Subscribe until Fulfill delivers the data. size is
// the declared size reported by Stat in the meantime.
func (m *MemFS) CreatePending(parent NodeID, name string, size int64) (NodeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := m.childTarget(parent, name)
	if err != nil {
		return InvalidNode, err
	}
	if _, ok := dir.children[name]; ok {
		return InvalidNode, fmt.Errorf("creating pending file %q: %w", name, errdefs.ErrAlreadyExists)
	}
	id := m.addNode(&node{name: name, size: size, mtime: m.now()})
	dir.children[name] = id
	return id, nil
}

// Fulfill delivers a pending node's content and fires its data-ready
// registrations, each exactly once, on the caller's goroutine.
func (m *MemFS) Fulfill(id NodeID, data []byte) error {
	m.mu.Lock()
	n, ok := m.nodes[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("fulfilling node %d: %w", id, errdefs.ErrNotFound)
	}
	if n.dir {
		m.mu.Unlock()
		return fmt.Errorf("fulfilling node %d: is a directory: %w", id, errdefs.ErrInvalidArgument)
	}
	if n.ready {
		m.mu.Unlock()
		return fmt.Errorf("fulfilling node %d: content already resident: %w", id, errdefs.ErrAlreadyExists)
	}
	n.data = bytes.Clone(data)
	n.size = int64(len(data))
	n.ready = true
	n.mtime = m.now()
	waiters := n.waiters
	n.waiters = nil
	m.mu.Unlock()

	// Outside the lock: a waiter may immediately call back in.
	for _, fn := range waiters {
		fn()
	}
	return nil
}

// Subscribe registers fn to run once the node's content is resident.
func (m *MemFS) Subscribe(id NodeID, fn func()) error {
	m.mu.Lock()
	n, ok := m.nodes[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("subscribing to node %d: %w", id, errdefs.ErrNotFound)
	}
	if n.dir {
		m.mu.Unlock()
		return fmt.Errorf("subscribing to node %d: is a directory: %w", id, errdefs.ErrInvalidArgument)
	}
	if n.ready {
		m.mu.Unlock()
		fn()
		return nil
	}
	n.waiters = append(n.waiters, fn)
	m.mu.Unlock()
	return nil
}

// Mkdir creates a directory under parent.
func (m *MemFS) Mkdir(parent NodeID, name string) (NodeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := m.childTarget(parent, name)
	if err != nil {
		return InvalidNode, err
	}
	if _, ok := dir.children[name]; ok {
		return InvalidNode, fmt.Errorf("creating directory %q: %w", name, errdefs.ErrAlreadyExists)
	}
	id := m.addNode(&node{name: name, dir: true, ready: true, mtime: m.now(), children: map[string]NodeID{}})
	dir.children[name] = id
	return id, nil
}

// Stat describes a node. Pending nodes report their declared size.
func (m *MemFS) Stat(id NodeID) (FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return FileInfo{}, fmt.Errorf("statting node %d: %w", id, errdefs.ErrNotFound)
	}
	return m.fileInfo(n), nil
}

// List returns a directory's children sorted by name.
func (m *MemFS) List(id NodeID) ([]DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("listing node %d: %w", id, errdefs.ErrNotFound)
	}
	if !n.dir {
		return nil, fmt.Errorf("listing node %d: not a directory: %w", id, errdefs.ErrInvalidArgument)
	}
	entries := make([]DirEntry, 0, len(n.children))
	for name, childID := range n.children {
		entries = append(entries, DirEntry{
			Name: name,
			Node: childID,
			Mode: m.fileInfo(m.nodes[childID]).Mode,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// childTarget validates parent as a directory able to hold a child
// called name. Callers hold m.mu.
func (m *MemFS) childTarget(parent NodeID, name string) (*node, error) {
	dir, ok := m.nodes[parent]
	if !ok {
		return nil, fmt.Errorf("parent node %d: %w", parent, errdefs.ErrNotFound)
	}
	if !dir.dir {
		return nil, fmt.Errorf("parent node %d: not a directory: %w", parent, errdefs.ErrInvalidArgument)
	}
	if name == "" || strings.ContainsRune(name, '/') {
		return nil, fmt.Errorf("invalid file name %q: %w", name, errdefs.ErrInvalidArgument)
	}
	return dir, nil
}

func (m *MemFS) now() time.Time { return m.clock.Now() }

func (m *MemFS) fileInfo(n *node) FileInfo {
	info := FileInfo{Name: n.name, Size: n.size, MTime: n.mtime}
	if n.dir {
		info.Mode = fs.ModeDir | 0o755
	} else {
		info.Mode = 0o644
	}
	return info
}
