// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile loads machine profiles: declarative files that
// describe a bootable machine — memory sizes, boot order, and the
// resource slots (firmware, disks, saved state, guest filesystem)
// that the boot pipeline loads.
//
// Profiles are authored as YAML or as JSONC (JSON extended with //
// line comments, /* block comments */, and trailing commas). The
// format is chosen by file extension; both parse into the same
// [Profile] schema. Scalar fields use human-friendly spellings —
// "128M" for sizes, "0x213" for the boot order — and are converted
// to typed [boot.Options] by [Profile.Options].
//
// Profiles name WHERE bytes come from, never secrets: decryption
// identities for saved-state containers are supplied by the caller
// (a command-line flag, an agent socket), not by profile fields.
//
// [Resolve] maps a bare profile name to a file in a profile
// directory. When the name matches nothing, the returned
// [*NotFoundError] carries the closest available names so callers
// can say "did you mean".
package profile
