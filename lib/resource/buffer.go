// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Buffer is byte-addressable access to one resource that may not be
// fully resident yet. Implementations are [MemoryBuffer],
// [WholeBuffer], and [RangeBuffer]; the factory [NewBuffer] picks one
// from a request's resolved mode.
type Buffer interface {
	// Load makes the buffer ready: resident modes transfer the whole
	// payload, range mode fetches metadata only. Load is idempotent —
	// the work runs exactly once and later calls return the same
	// result.
	Load(ctx context.Context) error

	// ReadAt reads len(p) bytes starting at off, following the
	// io.ReaderAt size conventions (short reads at the end return
	// io.EOF). The buffer must be loaded first.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// WriteAt writes p at off. Only mutable backings (in-memory,
	// local-file) accept writes, and writes never reach the source:
	// they land in the buffer's resident copy or overlay.
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)

	// Size returns the total payload size in bytes, or -1 before Load
	// has determined it.
	Size() int64

	// Bytes returns the fully resident payload, or nil when the buffer
	// does not hold the whole resource in memory. Callers must not
	// mutate the returned slice.
	Bytes() []byte
}

// Errors shared by the buffer implementations.
var (
	// ErrNotLoaded is returned for reads and writes before Load.
	ErrNotLoaded = errors.New("buffer not loaded")

	// ErrReadOnly is returned for writes to an immutable backing.
	ErrReadOnly = errors.New("buffer is read-only")

	// ErrOutOfRange is returned for writes beyond the payload bounds.
	// Buffers are fixed-size: a disk image does not grow.
	ErrOutOfRange = errors.New("write beyond buffer bounds")
)

// BuildOptions carries the shared collaborators a buffer needs during
// loading. The zero value works: fetches use http.DefaultClient, no
// cache, no progress reporting.
type BuildOptions struct {
	// Client is used for HTTP sources. Nil means http.DefaultClient.
	Client *http.Client

	// Cache, when set, serves whole-resource HTTP fetches.
	Cache Cache

	// Logger receives non-fatal load diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger

	// Progress, when set, observes transfer progress during Load:
	// loaded bytes so far and the total (-1 when unknown). Called
	// from the goroutine running Load.
	Progress func(loaded, total int64)
}

// NewBuffer resolves a request's mode and constructs the buffer
// strategy for it. The returned buffer is not yet loaded.
func NewBuffer(req Request, opts BuildOptions) (Buffer, error) {
	mode, err := ResolveMode(req)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeMemory:
		return NewMemoryBuffer([]byte(req.Source.(Bytes))), nil

	case ModeWhole:
		fetcher, err := fetcherFor(req.Source, opts)
		if err != nil {
			return nil, err
		}
		return &WholeBuffer{
			name:        req.Name,
			fetcher:     fetcher,
			digest:      req.Digest,
			compression: CompressionFor(sourceFileName(req.Source)),
			mutable:     mutableSource(req.Source),
			progress:    opts.Progress,
		}, nil

	case ModeRange:
		fetcher, err := fetcherFor(req.Source, opts)
		if err != nil {
			return nil, err
		}
		return &RangeBuffer{
			name:    req.Name,
			fetcher: fetcher,
			mutable: mutableSource(req.Source),
			size:    -1,
		}, nil

	default:
		return nil, fmt.Errorf("resource %q: unhandled mode %s", req.Name, mode)
	}
}

// fetcherFor constructs the fetcher matching a non-resident source.
func fetcherFor(src Source, opts BuildOptions) (Fetcher, error) {
	switch s := src.(type) {
	case File:
		return &FileFetcher{Path: string(s)}, nil
	case URL:
		return &HTTPFetcher{
			URL:    string(s),
			Client: opts.Client,
			Cache:  opts.Cache,
			Logger: opts.Logger,
		}, nil
	default:
		return nil, fmt.Errorf("source %s has no fetcher", src)
	}
}

// progressReader counts bytes flowing through a transfer and reports
// them to a callback after every chunk.
type progressReader struct {
	reader   io.Reader
	total    int64
	loaded   int64
	progress func(loaded, total int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.loaded += int64(n)
		if r.progress != nil {
			r.progress(r.loaded, r.total)
		}
	}
	return n, err
}

// readAt serves an io.ReaderAt-style read from a fully resident
// payload. Shared by the resident buffer implementations.
func readAt(data []byte, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative read offset %d", off)
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// writeAt serves a bounded write into a fully resident payload.
func writeAt(data []byte, p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(data)) {
		return 0, fmt.Errorf("write of %d bytes at offset %d in %d-byte buffer: %w",
			len(p), off, len(data), ErrOutOfRange)
	}
	return copy(data[off:], p), nil
}
