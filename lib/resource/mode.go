// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import "fmt"

// Mode selects a buffer strategy.
type Mode int

const (
	// ModeAuto lets ResolveMode choose from the source variant, the
	// size hint, and the request flags.
	ModeAuto Mode = iota

	// ModeMemory means the payload is resident from construction.
	// Only in-memory sources resolve to this mode.
	ModeMemory

	// ModeWhole reads the entire resource into memory during Load.
	ModeWhole

	// ModeRange fetches metadata during Load and byte ranges on
	// demand. Never used for eager, digest-carrying, or compressed
	// resources.
	ModeRange
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeMemory:
		return "memory"
	case ModeWhole:
		return "whole"
	case ModeRange:
		return "range"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// LazyThreshold is the size, in bytes, at or above which an
// auto-resolved resource uses range mode instead of a whole-resource
// load. Below it, downloading everything up front is cheaper than the
// per-read round trips.
const LazyThreshold = 16 << 20 // 16 MiB

// ModeError reports a request whose loading mode conflicts with its
// source or flags. It is returned by ResolveMode and surfaces through
// configuration assembly as a violation, before any I/O happens.
type ModeError struct {
	Name   string // resource name
	Mode   Mode   // the requested mode
	Reason string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("resource %q: %s mode rejected: %s", e.Name, e.Mode, e.Reason)
}

// ResolveMode determines the buffer strategy for a request. It is a
// pure function of the request — no I/O, no clock — so assembly can
// validate every request before the loader starts.
//
// Resolution order: in-memory sources are resident by definition;
// eager, digest, and compression constraints each forbid range mode;
// an explicit override is then honored; otherwise the size-hint
// heuristic picks range mode at LazyThreshold and whole mode below it.
func ResolveMode(req Request) (Mode, error) {
	if _, ok := req.Source.(Bytes); ok {
		if req.Mode == ModeRange {
			return ModeAuto, &ModeError{
				Name:   req.Name,
				Mode:   req.Mode,
				Reason: "in-memory sources are already resident",
			}
		}
		return ModeMemory, nil
	}
	if req.Mode == ModeMemory {
		return ModeAuto, &ModeError{
			Name:   req.Name,
			Mode:   req.Mode,
			Reason: "memory mode requires an in-memory source",
		}
	}

	if req.Mode == ModeRange {
		if req.Eager {
			return ModeAuto, &ModeError{
				Name:   req.Name,
				Mode:   req.Mode,
				Reason: "eager-required resources must be fully resident before boot",
			}
		}
		if !req.Digest.IsZero() {
			return ModeAuto, &ModeError{
				Name:   req.Name,
				Mode:   req.Mode,
				Reason: "digest verification requires the whole payload",
			}
		}
		if c := CompressionFor(sourceFileName(req.Source)); c != CompressionNone {
			return ModeAuto, &ModeError{
				Name:   req.Name,
				Mode:   req.Mode,
				Reason: fmt.Sprintf("%s payloads have no random access", c),
			}
		}
		return ModeRange, nil
	}

	if req.Mode == ModeWhole {
		return ModeWhole, nil
	}

	// ModeAuto. Constraints that demand residency win over size.
	if req.Eager || !req.Digest.IsZero() {
		return ModeWhole, nil
	}
	if CompressionFor(sourceFileName(req.Source)) != CompressionNone {
		return ModeWhole, nil
	}
	if req.SizeHint >= LazyThreshold {
		return ModeRange, nil
	}
	return ModeWhole, nil
}
