// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the transparent-decompression algorithm
// detected for a resource. Detection is by file extension on the
// source's name; in-memory sources have no name and are never
// decompressed.
type Compression uint8

const (
	// CompressionNone indicates the payload is used as-is.
	CompressionNone Compression = iota

	// CompressionZstd indicates a zstd frame (*.zst).
	CompressionZstd

	// CompressionLZ4 indicates an LZ4 frame (*.lz4).
	CompressionLZ4
)

// String returns the human-readable name of a compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// CompressionFor returns the compression detected from a resource's
// file name. Compressed payloads load in whole mode only: frame
// formats have no random access, so range mode is rejected for them
// at resolution time.
func CompressionFor(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".zst"):
		return CompressionZstd
	case strings.HasSuffix(name, ".lz4"):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// zstdDecoder is reused across calls to avoid repeated initialization
// overhead. zstd.Decoder is safe for concurrent use in DecodeAll mode.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("resource: zstd decoder initialization failed: " + err.Error())
	}
}

// decompress expands a compressed payload. For CompressionNone the
// input is returned unchanged (no copy).
func decompress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil

	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return result, nil

	case CompressionLZ4:
		result, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported compression: %d", c)
	}
}
