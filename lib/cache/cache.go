// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/slipway-systems/slipway/lib/clock"
	"github.com/slipway-systems/slipway/lib/codec"
)

// Domain separation keys for the two hashes the cache computes: entry
// file names from URLs, and payload integrity digests. The byte values
// are the ASCII domain name, zero-padded to 32 bytes.
var (
	urlDomainKey = [32]byte{
		's', 'l', 'i', 'p', 'w', 'a', 'y', '.', 'c', 'a', 'c', 'h', 'e', '.', 'u', 'r',
		'l', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	payloadDomainKey = [32]byte{
		's', 'l', 'i', 'p', 'w', 'a', 'y', '.', 'c', 'a', 'c', 'h', 'e', '.', 'p', 'a',
		'y', 'l', 'o', 'a', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// entryMeta is the CBOR metadata record stored beside each payload.
type entryMeta struct {
	URL       string    `cbor:"url"`
	ETag      string    `cbor:"etag"`
	Size      int64     `cbor:"size"`
	Digest    string    `cbor:"digest"`
	FetchedAt time.Time `cbor:"fetched_at"`
}

// Options configures a cache.
type Options struct {
	// Dir is the cache directory, created if missing. Required.
	Dir string

	// Clock stamps entries. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives corruption warnings. Nil means slog.Default().
	Logger *slog.Logger
}

// Cache is an on-disk store of downloaded payloads keyed by URL. It is
// safe for concurrent use: writes are staged in temporary files and
// renamed into place.
type Cache struct {
	dir    string
	clock  clock.Clock
	logger *slog.Logger
}

// Open creates or reuses the cache directory and returns a cache over
// it.
func Open(options Options) (*Cache, error) {
	if options.Dir == "" {
		return nil, errors.New("cache: Dir is required")
	}
	if err := os.MkdirAll(options.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	c := &Cache{
		dir:    options.Dir,
		clock:  options.Clock,
		logger: options.Logger,
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Get returns the cached payload and stored ETag for url. A corrupt
// entry (size or digest mismatch, unreadable metadata) is removed and
// reported as a miss.
func (c *Cache) Get(ctx context.Context, url string) ([]byte, string, bool, error) {
	key := entryKey(url)

	metaRaw, err := os.ReadFile(c.metaPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("reading cache metadata: %w", err)
	}

	var meta entryMeta
	if err := codec.Unmarshal(metaRaw, &meta); err != nil {
		c.evictCorrupt(url, key, fmt.Errorf("decoding metadata: %w", err))
		return nil, "", false, nil
	}

	data, err := os.ReadFile(c.dataPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		c.evictCorrupt(url, key, errors.New("payload file missing"))
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("reading cache payload: %w", err)
	}

	if int64(len(data)) != meta.Size || hashPayload(data) != meta.Digest {
		c.evictCorrupt(url, key, errors.New("payload does not match recorded size/digest"))
		return nil, "", false, nil
	}
	return data, meta.ETag, true, nil
}

// Put stores the payload and its validator for url, replacing any
// previous entry.
func (c *Cache) Put(ctx context.Context, url string, data []byte, etag string) error {
	key := entryKey(url)

	meta := entryMeta{
		URL:       url,
		ETag:      etag,
		Size:      int64(len(data)),
		Digest:    hashPayload(data),
		FetchedAt: c.clock.Now(),
	}
	metaRaw, err := codec.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding cache metadata: %w", err)
	}

	// Payload first: a reader that sees the new metadata must also see
	// the new payload. The digest check catches the reverse order.
	if err := c.writeAtomic(c.dataPath(key), data); err != nil {
		return fmt.Errorf("writing cache payload: %w", err)
	}
	if err := c.writeAtomic(c.metaPath(key), metaRaw); err != nil {
		return fmt.Errorf("writing cache metadata: %w", err)
	}
	return nil
}

// Remove deletes the entry for url, if present.
func (c *Cache) Remove(url string) error {
	key := entryKey(url)
	var errs []error
	for _, path := range []string{c.metaPath(key), c.dataPath(key)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Cache) evictCorrupt(url, key string, reason error) {
	c.logger.Warn("evicting corrupt cache entry", "url", url, "key", key, "error", reason)
	os.Remove(c.metaPath(key))
	os.Remove(c.dataPath(key))
}

func (c *Cache) dataPath(key string) string { return filepath.Join(c.dir, key+".data") }
func (c *Cache) metaPath(key string) string { return filepath.Join(c.dir, key+".meta") }

// writeAtomic stages content in a temporary file and renames it into
// place, so readers never observe a partial write.
func (c *Cache) writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// entryKey derives the entry file-name stem for a URL.
func entryKey(url string) string {
	hasher, err := blake3.NewKeyed(urlDomainKey[:])
	if err != nil {
		panic("cache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(url))
	return hex.EncodeToString(hasher.Sum(nil))
}

// hashPayload computes the integrity digest stored in entry metadata.
func hashPayload(data []byte) string {
	hasher, err := blake3.NewKeyed(payloadDomainKey[:])
	if err != nil {
		panic("cache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}
