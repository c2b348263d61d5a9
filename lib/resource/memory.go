// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"
	"sync"
)

// MemoryBuffer is the strategy for sources that are already fully
// resident. Load completes immediately and synchronously; reads and
// writes go straight to the payload.
type MemoryBuffer struct {
	mu   sync.RWMutex
	data []byte
}

var _ Buffer = (*MemoryBuffer)(nil)

// NewMemoryBuffer wraps an in-memory payload. The buffer takes
// ownership of data. A nil payload is an empty resident buffer, so
// Bytes never reports it as unloaded.
func NewMemoryBuffer(data []byte) *MemoryBuffer {
	if data == nil {
		data = []byte{}
	}
	return &MemoryBuffer{data: data}
}

// Load is a no-op: the payload was resident at construction.
func (b *MemoryBuffer) Load(ctx context.Context) error { return nil }

func (b *MemoryBuffer) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return readAt(b.data, p, off)
}

func (b *MemoryBuffer) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return writeAt(b.data, p, off)
}

func (b *MemoryBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

func (b *MemoryBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}
