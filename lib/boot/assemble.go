// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package boot

import (
	"errors"
	"fmt"

	"github.com/slipway-systems/slipway/lib/resource"
)

// ViolationError reports a configuration that cannot produce a
// runnable machine: an invalid loading mode, a boot-critical resource
// that is not fully resident after loading, or a slot whose
// collaborator is missing. It is always fatal and always surfaces
// before the machine core is initialized.
type ViolationError struct {
	// Slot is the resource slot the violation concerns.
	Slot string

	// Err is the underlying cause.
	Err error
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("boot: configuration violation for slot %q: %v", e.Slot, e.Err)
}

func (e *ViolationError) Unwrap() error { return e.Err }

// IsViolation reports whether err is a configuration violation.
func IsViolation(err error) bool {
	var violation *ViolationError
	return errors.As(err, &violation)
}

// bootCritical reports whether a slot must be fully resident before
// the machine core initializes. The core reads firmware and saved
// state synchronously during Init, so lazy loading is never an option
// for these.
func bootCritical(slot string) bool {
	switch slot {
	case SlotBIOS, SlotVGABIOS, SlotInitialState:
		return true
	case SlotFloppyA, SlotFloppyB, SlotHDA, SlotHDB, SlotCDROM, SlotFilesystem:
		return false
	default:
		panic(fmt.Sprintf("boot: unknown resource slot %q", slot))
	}
}

// Plan is an assembled boot configuration before loading: resolved
// scalars plus the ordered request list for the sequential loader.
// Plans are produced by Assemble and consumed by Finalize; they are
// not mutated in between.
type Plan struct {
	MemorySize    int64
	VGAMemorySize int64
	BootOrder     int
	Autostart     bool

	// Requests is the load order: firmware first, then storage
	// devices, then saved state, then the filesystem manifest.
	Requests []resource.Request
}

// Assemble turns caller options into a load plan. Defaults fill the
// zero scalars; boot-critical slots are forced eager, silently
// reinterpreting a caller's lazy-mode preference; every populated
// slot's loading mode is validated. No I/O happens here.
func Assemble(opts Options) (*Plan, error) {
	plan := &Plan{
		MemorySize:    opts.MemorySize,
		VGAMemorySize: opts.VGAMemorySize,
		BootOrder:     opts.BootOrder,
		Autostart:     opts.Autostart,
	}
	if plan.MemorySize == 0 {
		plan.MemorySize = DefaultMemorySize
	}
	if plan.VGAMemorySize == 0 {
		plan.VGAMemorySize = DefaultVGAMemorySize
	}
	if plan.BootOrder == 0 {
		plan.BootOrder = DefaultBootOrder
	}

	slots := []struct {
		name string
		spec *resource.Spec
	}{
		{SlotBIOS, opts.BIOS},
		{SlotVGABIOS, opts.VGABIOS},
		{SlotFloppyA, opts.FloppyA},
		{SlotFloppyB, opts.FloppyB},
		{SlotHDA, opts.HDA},
		{SlotHDB, opts.HDB},
		{SlotCDROM, opts.CDROM},
		{SlotInitialState, opts.InitialState},
		{SlotFilesystem, opts.Filesystem},
	}

	var violations []error
	for _, slot := range slots {
		if slot.spec == nil {
			continue
		}
		request := slot.spec.Request(slot.name, bootCritical(slot.name))
		if request.Eager && request.Mode == resource.ModeRange {
			// The caller asked for lazy loading on a slot the core
			// must read synchronously. Reinterpret rather than
			// reject: eager wins, the mode heuristic decides the
			// rest.
			request.Mode = resource.ModeAuto
		}
		if _, err := resource.ResolveMode(request); err != nil {
			violations = append(violations, &ViolationError{Slot: slot.name, Err: err})
			continue
		}
		plan.Requests = append(plan.Requests, request)
	}
	if err := errors.Join(violations...); err != nil {
		return nil, err
	}
	return plan, nil
}
