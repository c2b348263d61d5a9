// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"
)

// MinPayloadSize is the smallest payload Decode accepts. The machine
// core's state container opens with a fixed 16-byte header; anything
// shorter is a truncated download or a foreign file, and rejecting it
// here produces a clearer failure than handing it to the core.
const MinPayloadSize = 16

// ageHeader opens every binary age stream.
var ageHeader = []byte("age-encryption.org/v1")

// zstdMagic is the zstd frame magic number (little-endian on the wire).
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// zstdEncoder and zstdDecoder are reused across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("snapshot: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("snapshot: zstd decoder initialization failed: " + err.Error())
	}
}

// Options configures Decode.
type Options struct {
	// Identities unlock age-encrypted containers. Required when the
	// data carries the age header; ignored otherwise.
	Identities []age.Identity
}

// Info describes the container layers Decode peeled.
type Info struct {
	// Encrypted reports that the container was age-encrypted.
	Encrypted bool

	// Compressed reports that the container was zstd-compressed.
	Compressed bool

	// Size is the decoded payload size in bytes.
	Size int64
}

// Decode unwraps a saved-state container and returns the raw payload
// for the machine core. Encryption is peeled before compression,
// mirroring the Encode order.
func Decode(data []byte, opts Options) ([]byte, Info, error) {
	var info Info

	if bytes.HasPrefix(data, ageHeader) {
		info.Encrypted = true
		if len(opts.Identities) == 0 {
			return nil, info, fmt.Errorf("saved state is age-encrypted and no identities were supplied")
		}
		reader, err := age.Decrypt(bytes.NewReader(data), opts.Identities...)
		if err != nil {
			return nil, info, fmt.Errorf("decrypting saved state: %w", err)
		}
		decrypted, err := io.ReadAll(reader)
		if err != nil {
			return nil, info, fmt.Errorf("reading decrypted saved state: %w", err)
		}
		data = decrypted
	}

	if bytes.HasPrefix(data, zstdMagic) {
		info.Compressed = true
		decoded, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, info, fmt.Errorf("decompressing saved state: %w", err)
		}
		data = decoded
	}

	if len(data) < MinPayloadSize {
		return nil, info, fmt.Errorf("saved state payload is %d bytes, shorter than the %d-byte state header",
			len(data), MinPayloadSize)
	}
	info.Size = int64(len(data))
	return data, info, nil
}

// EncodeOptions configures Encode.
type EncodeOptions struct {
	// Recipients encrypt the container to a set of age recipients.
	// Empty means no encryption.
	Recipients []age.Recipient

	// Compress applies zstd before any encryption. Encrypting first
	// would make the compression pass useless.
	Compress bool
}

// Encode wraps a machine-state payload for storage: compression, then
// encryption. With zero options the payload passes through unchanged.
func Encode(payload []byte, opts EncodeOptions) ([]byte, error) {
	data := payload
	if opts.Compress {
		data = zstdEncoder.EncodeAll(data, nil)
	}
	if len(opts.Recipients) > 0 {
		var sealed bytes.Buffer
		writer, err := age.Encrypt(&sealed, opts.Recipients...)
		if err != nil {
			return nil, fmt.Errorf("creating age encryptor: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("writing saved state to age encryptor: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("finalizing age encryption: %w", err)
		}
		data = sealed.Bytes()
	}
	return data, nil
}
