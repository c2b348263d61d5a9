// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// WholeBuffer is the strategy that transfers the entire resource into
// memory during Load, then behaves like a resident buffer. It carries
// the transparent-decompression and digest-verification steps, which
// both need the complete payload.
type WholeBuffer struct {
	name        string
	fetcher     Fetcher
	digest      Digest
	compression Compression
	mutable     bool
	progress    func(loaded, total int64)

	once    sync.Once
	loadErr error

	mu   sync.RWMutex
	data []byte
}

var _ Buffer = (*WholeBuffer)(nil)

// Load transfers, decompresses, and verifies the payload. The transfer
// runs exactly once; repeated calls return the first outcome.
func (b *WholeBuffer) Load(ctx context.Context) error {
	b.once.Do(func() { b.loadErr = b.load(ctx) })
	return b.loadErr
}

func (b *WholeBuffer) load(ctx context.Context) error {
	body, total, err := b.fetcher.Open(ctx, 0, -1)
	if err != nil {
		return fmt.Errorf("loading %q: %w", b.name, err)
	}
	defer body.Close()

	var payload bytes.Buffer
	if total > 0 {
		payload.Grow(int(total))
	}
	counted := &progressReader{reader: body, total: total, progress: b.progress}
	if _, err := payload.ReadFrom(counted); err != nil {
		return fmt.Errorf("loading %q: %w", b.name, err)
	}

	data := payload.Bytes()
	if b.compression != CompressionNone {
		data, err = decompress(b.compression, data)
		if err != nil {
			return fmt.Errorf("loading %q: %w", b.name, err)
		}
	}
	if err := verifyDigest(b.name, data, b.digest); err != nil {
		return err
	}
	if data == nil {
		// Distinguish a loaded empty payload from "not loaded yet".
		data = []byte{}
	}

	b.mu.Lock()
	b.data = data
	b.mu.Unlock()
	return nil
}

func (b *WholeBuffer) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return 0, fmt.Errorf("reading %q: %w", b.name, ErrNotLoaded)
	}
	return readAt(b.data, p, off)
}

func (b *WholeBuffer) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if !b.mutable {
		return 0, fmt.Errorf("writing %q: %w", b.name, ErrReadOnly)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return 0, fmt.Errorf("writing %q: %w", b.name, ErrNotLoaded)
	}
	return writeAt(b.data, p, off)
}

// Size returns the decompressed payload size, or -1 before Load.
func (b *WholeBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return -1
	}
	return int64(len(b.data))
}

// Bytes returns the resident payload, nil before Load.
func (b *WholeBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}
