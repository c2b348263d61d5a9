// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// RangeBuffer is the lazy strategy for large resources. Load fetches
// only the total size; every ReadAt issues a fresh range fetch. The
// machine core can therefore start while a multi-gigabyte disk image
// is still remote.
//
// Writes go to an in-memory overlay of extents that shadows the source
// on subsequent reads — the source itself is never modified. The
// overlay is only offered for local-file backings; remote backings are
// read-only.
type RangeBuffer struct {
	name    string
	fetcher Fetcher
	mutable bool

	once    sync.Once
	loadErr error

	mu      sync.Mutex
	size    int64 // -1 until Load
	overlay []extent
}

var _ Buffer = (*RangeBuffer)(nil)

// Load fetches the resource's metadata. Range mode needs a definite
// total size — the machine core sizes its device geometry from it — so
// a transport that cannot report one fails the load.
func (b *RangeBuffer) Load(ctx context.Context) error {
	b.once.Do(func() { b.loadErr = b.load(ctx) })
	return b.loadErr
}

func (b *RangeBuffer) load(ctx context.Context) error {
	info, err := b.fetcher.Stat(ctx)
	if err != nil {
		return fmt.Errorf("loading %q: %w", b.name, err)
	}
	if info.Size < 0 {
		return fmt.Errorf("loading %q: source does not report a size, which range mode requires", b.name)
	}
	b.mu.Lock()
	b.size = info.Size
	b.mu.Unlock()
	return nil
}

// ReadAt fetches the requested window from the source and applies any
// overlay extents on top, so the caller observes its own writes. When
// the overlay fully covers the window, no fetch is issued.
func (b *RangeBuffer) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.mu.Lock()
	size := b.size
	overlay := b.overlay
	b.mu.Unlock()

	if size < 0 {
		return 0, fmt.Errorf("reading %q: %w", b.name, ErrNotLoaded)
	}
	if off < 0 {
		return 0, fmt.Errorf("reading %q: negative offset %d", b.name, off)
	}
	if off >= size {
		return 0, io.EOF
	}

	want := len(p)
	short := false
	if off+int64(want) > size {
		want = int(size - off)
		short = true
	}

	if !coversRange(overlay, off, want) {
		body, _, err := b.fetcher.Open(ctx, off, int64(want))
		if err != nil {
			return 0, fmt.Errorf("reading %q at %d: %w", b.name, off, err)
		}
		_, err = io.ReadFull(body, p[:want])
		body.Close()
		if err != nil {
			return 0, fmt.Errorf("reading %q at %d: %w", b.name, off, err)
		}
	}
	applyOverlay(overlay, p[:want], off)

	if short {
		return want, io.EOF
	}
	return want, nil
}

// WriteAt records p in the overlay. The underlying source is never
// touched.
func (b *RangeBuffer) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if !b.mutable {
		return 0, fmt.Errorf("writing %q: %w", b.name, ErrReadOnly)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size < 0 {
		return 0, fmt.Errorf("writing %q: %w", b.name, ErrNotLoaded)
	}
	if off < 0 || off+int64(len(p)) > b.size {
		return 0, fmt.Errorf("write of %d bytes at offset %d in %d-byte buffer: %w",
			len(p), off, b.size, ErrOutOfRange)
	}
	if len(p) == 0 {
		return 0, nil
	}
	owned := make([]byte, len(p))
	copy(owned, p)
	b.overlay = insertExtent(b.overlay, extent{off: off, data: owned})
	return len(p), nil
}

// Size returns the total resource size, -1 before Load.
func (b *RangeBuffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Bytes returns nil: a range buffer never holds the whole payload.
func (b *RangeBuffer) Bytes() []byte { return nil }

// --- Overlay extents ---

// extent is one written range. The overlay invariant: extents are
// sorted by offset and never overlap.
type extent struct {
	off  int64
	data []byte
}

func (e extent) end() int64 { return e.off + int64(len(e.data)) }

// insertExtent adds a new extent, trimming or splitting existing
// extents it overlaps. Later writes win.
func insertExtent(extents []extent, ins extent) []extent {
	out := make([]extent, 0, len(extents)+2)
	inserted := false
	for _, e := range extents {
		switch {
		case e.end() <= ins.off:
			out = append(out, e)

		case e.off >= ins.end():
			if !inserted {
				out = append(out, ins)
				inserted = true
			}
			out = append(out, e)

		default:
			// Overlap: keep the parts of e outside the new extent.
			if e.off < ins.off {
				out = append(out, extent{off: e.off, data: e.data[:ins.off-e.off]})
			}
			if e.end() > ins.end() {
				if !inserted {
					out = append(out, ins)
					inserted = true
				}
				out = append(out, extent{off: ins.end(), data: e.data[ins.end()-e.off:]})
			}
		}
	}
	if !inserted {
		out = append(out, ins)
	}
	return out
}

// coversRange reports whether the overlay contiguously covers
// [off, off+length).
func coversRange(extents []extent, off int64, length int) bool {
	need := off
	end := off + int64(length)
	for _, e := range extents {
		if e.end() <= need {
			continue
		}
		if e.off > need {
			return false
		}
		need = e.end()
		if need >= end {
			return true
		}
	}
	return need >= end
}

// applyOverlay copies the overlay's contents over the window
// [off, off+len(p)) in p.
func applyOverlay(extents []extent, p []byte, off int64) {
	end := off + int64(len(p))
	for _, e := range extents {
		if e.end() <= off || e.off >= end {
			continue
		}
		from := max(e.off, off)
		to := min(e.end(), end)
		copy(p[from-off:to-off], e.data[from-e.off:to-e.off])
	}
}
