// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package guestfs

import (
	"encoding/json"
	"fmt"
)

// ManifestVersion is the manifest document version this package
// understands.
const ManifestVersion = 1

// Manifest is the document a guest image builder produces to describe
// a filesystem root. It is the payload of the "fs" boot slot.
type Manifest struct {
	Version int             `json:"version"`
	Root    []ManifestEntry `json:"root"`
}

// ManifestEntry describes one node. Directories set Dir and carry
// Children. Files either carry their content inline in Data, or only a
// Size — the content then arrives later through Fulfill (for example
// once a lazily loaded image supplies it).
type ManifestEntry struct {
	Name     string          `json:"name"`
	Dir      bool            `json:"dir,omitempty"`
	Size     int64           `json:"size,omitempty"`
	Data     []byte          `json:"data,omitempty"`
	Children []ManifestEntry `json:"children,omitempty"`
}

// LoadManifest replaces the tree with the manifest's. The new tree is
// staged first, so a malformed manifest leaves the current tree
// untouched. Data-ready registrations on the old tree are discarded.
func (m *MemFS) LoadManifest(data []byte) error {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parsing filesystem manifest: %w", err)
	}
	if manifest.Version != ManifestVersion {
		return fmt.Errorf("unsupported filesystem manifest version %d (want %d)",
			manifest.Version, ManifestVersion)
	}

	staging := NewMemFS(m.clock)
	if err := staging.populate(staging.Root(), manifest.Root); err != nil {
		return err
	}

	m.mu.Lock()
	m.nodes = staging.nodes
	m.root = staging.root
	m.nextID = staging.nextID
	m.mu.Unlock()
	return nil
}

// populate builds one directory level from manifest entries.
func (m *MemFS) populate(parent NodeID, entries []ManifestEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry.Name]; dup {
			return fmt.Errorf("manifest entry %q: duplicate name in directory", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		switch {
		case entry.Dir:
			id, err := m.Mkdir(parent, entry.Name)
			if err != nil {
				return fmt.Errorf("manifest entry %q: %w", entry.Name, err)
			}
			if err := m.populate(id, entry.Children); err != nil {
				return err
			}

		case len(entry.Children) > 0:
			return fmt.Errorf("manifest entry %q: children on a non-directory", entry.Name)

		case entry.Data != nil:
			if entry.Size != 0 && entry.Size != int64(len(entry.Data)) {
				return fmt.Errorf("manifest entry %q: declared size %d does not match %d data bytes",
					entry.Name, entry.Size, len(entry.Data))
			}
			if _, err := m.CreateFile(parent, entry.Name, entry.Data); err != nil {
				return fmt.Errorf("manifest entry %q: %w", entry.Name, err)
			}

		default:
			if _, err := m.CreatePending(parent, entry.Name, entry.Size); err != nil {
				return fmt.Errorf("manifest entry %q: %w", entry.Name, err)
			}
		}
	}
	return nil
}
