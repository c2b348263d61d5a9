// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed hash of a resource payload. The
// zero value means "no digest" — requests without integrity pinning
// leave it unset.
type Digest [32]byte

// resourceDomainKey is the BLAKE3 key for resource payload digests.
// Domain separation keeps payload digests distinct from hashes of the
// same bytes computed elsewhere (for example download-cache keys). The
// key bytes are the ASCII domain name, zero-padded to 32 bytes, so the
// key is inspectable in hex dumps without losing any cryptographic
// property.
var resourceDomainKey = [32]byte{
	's', 'l', 'i', 'p', 'w', 'a', 'y', '.', 'r', 'e', 's', 'o', 'u', 'r', 'c', 'e',
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool { return d == Digest{} }

// HashData computes the resource-domain digest of a payload. Digests
// are computed on the bytes handed to the consumer: for compressed
// resources that means after decompression.
func HashData(data []byte) Digest {
	hasher, err := blake3.NewKeyed(resourceDomainKey[:])
	if err != nil {
		// NewKeyed fails only on wrong key length, which the fixed-size
		// array rules out.
		panic("resource: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// FormatDigest returns the hex encoding of a digest, the canonical
// form used in profiles, logs, and CLI output.
func FormatDigest(d Digest) string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses a 64-character hex string into a Digest.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing resource digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("resource digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// MarshalText implements encoding.TextMarshaler. Digests serialize as
// their canonical hex form.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(FormatDigest(d)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DigestError reports a payload whose computed digest does not match
// the digest pinned on its request.
type DigestError struct {
	Name string // resource name
	Want Digest
	Got  Digest
}

func (e *DigestError) Error() string {
	return fmt.Sprintf("resource %q: digest mismatch: want %s, got %s",
		e.Name, FormatDigest(e.Want), FormatDigest(e.Got))
}

// verifyDigest checks data against want, returning a *DigestError on
// mismatch. A zero want always passes.
func verifyDigest(name string, data []byte, want Digest) error {
	if want.IsZero() {
		return nil
	}
	got := HashData(data)
	if got != want {
		return &DigestError{Name: name, Want: want, Got: got}
	}
	return nil
}
