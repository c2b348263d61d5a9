// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package boot

import (
	"filippo.io/age"

	"github.com/slipway-systems/slipway/lib/resource"
)

// Resource slot names. These are the keys resources are loaded and
// reported under (progress events, result sets, profiles) — changing
// them breaks saved profiles.
const (
	// SlotBIOS is the system firmware image. Boot-critical.
	SlotBIOS = "bios"

	// SlotVGABIOS is the video firmware image. Boot-critical.
	SlotVGABIOS = "vga_bios"

	// SlotFloppyA and SlotFloppyB are floppy disk images.
	SlotFloppyA = "fda"
	SlotFloppyB = "fdb"

	// SlotHDA and SlotHDB are hard disk images.
	SlotHDA = "hda"
	SlotHDB = "hdb"

	// SlotCDROM is a CD-ROM image.
	SlotCDROM = "cdrom"

	// SlotInitialState is a saved-state snapshot container, restored
	// into the core immediately after initialization. Boot-critical.
	SlotInitialState = "initial_state"

	// SlotFilesystem is a guest filesystem manifest, handed to the
	// filesystem collaborator before the ready signal.
	SlotFilesystem = "fs"
)

// Defaults applied by Assemble when the corresponding option is zero.
const (
	// DefaultMemorySize is the guest RAM size: 64 MiB.
	DefaultMemorySize int64 = 64 << 20

	// DefaultVGAMemorySize is the video memory size: 8 MiB.
	DefaultVGAMemorySize int64 = 8 << 20

	// DefaultBootOrder is the BIOS boot preference word. Each nibble
	// is a BIOS device code (1 floppy, 2 hard disk, 3 CD-ROM), lowest
	// nibble tried first: 0x213 boots CD-ROM, then floppy, then hard
	// disk.
	DefaultBootOrder = 0x213
)

// Options are the caller-facing boot parameters. The zero value is a
// valid (if empty) machine: defaults fill the scalars and absent slots
// are simply not loaded.
type Options struct {
	// MemorySize is the guest RAM size in bytes.
	MemorySize int64

	// VGAMemorySize is the video memory size in bytes.
	VGAMemorySize int64

	// BootOrder is the BIOS boot preference word (see
	// DefaultBootOrder for the encoding).
	BootOrder int

	// Autostart starts core execution as soon as the machine is
	// ready. Without it, Boot leaves the core initialized but
	// stopped.
	Autostart bool

	// Resource slots. A nil slot is absent.
	BIOS         *resource.Spec
	VGABIOS      *resource.Spec
	FloppyA      *resource.Spec
	FloppyB      *resource.Spec
	HDA          *resource.Spec
	HDB          *resource.Spec
	CDROM        *resource.Spec
	InitialState *resource.Spec
	Filesystem   *resource.Spec

	// SnapshotIdentities unlock an age-encrypted InitialState
	// container. Unused when the slot is absent or unencrypted.
	SnapshotIdentities []age.Identity
}
