// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
)

// Source identifies where a resource's bytes come from. It is a sealed
// union: the only implementations are [Bytes], [File], and [URL].
// Loading behavior is resolved from the concrete variant by
// [ResolveMode], never by probing fields at run time.
type Source interface {
	fmt.Stringer

	// isSource marks the sealed set of variants.
	isSource()
}

// Bytes is a source that is already fully resident in memory.
type Bytes []byte

func (Bytes) isSource() {}

func (b Bytes) String() string {
	return fmt.Sprintf("<%d bytes in memory>", len(b))
}

// File is a source backed by a local file path.
type File string

func (File) isSource() {}

func (f File) String() string { return string(f) }

// URL is a source backed by a remote HTTP or HTTPS reference.
type URL string

func (URL) isSource() {}

func (u URL) String() string { return string(u) }

// Spec describes one named slot's resource before it is planned into a
// Request: the source plus the caller's loading constraints. The slot
// name and the eager flag are supplied by the settings assembler, which
// knows which slots are boot-critical.
type Spec struct {
	// Source is where the bytes come from. Required.
	Source Source

	// SizeHint is the expected total size in bytes, used by the mode
	// heuristic. Zero means unknown.
	SizeHint int64

	// Mode overrides the heuristic. ModeAuto (the zero value) lets
	// ResolveMode choose.
	Mode Mode

	// Digest, when non-zero, is verified against the fully loaded
	// payload. Requires a resident loading mode.
	Digest Digest
}

// FromBytes returns a Spec over an in-memory payload.
func FromBytes(data []byte) *Spec {
	return &Spec{Source: Bytes(data), SizeHint: int64(len(data))}
}

// FromFile returns a Spec over a local file path.
func FromFile(path string) *Spec {
	return &Spec{Source: File(path)}
}

// FromURL returns a Spec over a remote reference.
func FromURL(rawURL string) *Spec {
	return &Spec{Source: URL(rawURL)}
}

// Request is one named load order for the sequential loader. Requests
// are created during configuration assembly, consumed exactly once by
// the loader, and never mutated after creation.
type Request struct {
	// Name is the unique resource key (the configuration slot).
	Name string

	// Source is where the bytes come from.
	Source Source

	// SizeHint is the expected total size in bytes; zero when unknown.
	SizeHint int64

	// Eager marks a resource the machine core must be able to read in
	// full, synchronously, at initialization. Eager requests never
	// resolve to range mode.
	Eager bool

	// Mode is the caller's loading-mode override; ModeAuto by default.
	Mode Mode

	// Digest, when non-zero, is verified after loading.
	Digest Digest
}

// Request binds a Spec to its slot name and eager flag.
func (s *Spec) Request(name string, eager bool) Request {
	return Request{
		Name:     name,
		Source:   s.Source,
		SizeHint: s.SizeHint,
		Eager:    eager,
		Mode:     s.Mode,
		Digest:   s.Digest,
	}
}

// sourceFileName returns the base file name a source refers to, used
// for compression detection. In-memory sources have no name.
func sourceFileName(src Source) string {
	switch s := src.(type) {
	case File:
		return filepath.Base(string(s))
	case URL:
		parsed, err := url.Parse(string(s))
		if err != nil {
			return path.Base(string(s))
		}
		return path.Base(parsed.Path)
	default:
		return ""
	}
}

// mutableSource reports whether writes are accepted for buffers over
// this source. Remote resources are read-only.
func mutableSource(src Source) bool {
	switch src.(type) {
	case Bytes, File:
		return true
	default:
		return false
	}
}
