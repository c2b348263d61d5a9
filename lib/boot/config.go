// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package boot

import (
	"errors"
	"fmt"

	"github.com/slipway-systems/slipway/lib/resource"
)

// Config is the frozen machine configuration. Finalize builds it from
// loaded buffers; it is handed to the machine core exactly once and
// never mutated afterward. A nil buffer means the slot is absent.
type Config struct {
	MemorySize    int64
	VGAMemorySize int64
	BootOrder     int

	BIOS         resource.Buffer
	VGABIOS      resource.Buffer
	FloppyA      resource.Buffer
	FloppyB      resource.Buffer
	HDA          resource.Buffer
	HDB          resource.Buffer
	CDROM        resource.Buffer
	InitialState resource.Buffer
	Filesystem   resource.Buffer
}

// Results is what Finalize consumes: loaded buffers keyed by request
// name. *loader.ResultSet satisfies it.
type Results interface {
	Buffer(name string) (resource.Buffer, bool)
}

// Finalize reassembles loaded buffers into the frozen Config. Every
// request in the plan must have a buffer, and every eager request's
// buffer must be fully resident — a loader that honored the plan
// guarantees both, but the Config is the last line before the machine
// core, so it verifies rather than trusts.
func (p *Plan) Finalize(results Results) (*Config, error) {
	config := &Config{
		MemorySize:    p.MemorySize,
		VGAMemorySize: p.VGAMemorySize,
		BootOrder:     p.BootOrder,
	}

	for _, request := range p.Requests {
		buffer, ok := results.Buffer(request.Name)
		if !ok {
			return nil, &ViolationError{Slot: request.Name, Err: errors.New("no loaded buffer for slot")}
		}
		if request.Eager && buffer.Bytes() == nil {
			return nil, &ViolationError{Slot: request.Name, Err: errors.New("eager resource is not fully resident")}
		}

		switch request.Name {
		case SlotBIOS:
			config.BIOS = buffer
		case SlotVGABIOS:
			config.VGABIOS = buffer
		case SlotFloppyA:
			config.FloppyA = buffer
		case SlotFloppyB:
			config.FloppyB = buffer
		case SlotHDA:
			config.HDA = buffer
		case SlotHDB:
			config.HDB = buffer
		case SlotCDROM:
			config.CDROM = buffer
		case SlotInitialState:
			config.InitialState = buffer
		case SlotFilesystem:
			config.Filesystem = buffer
		default:
			panic(fmt.Sprintf("boot: unknown resource slot %q", request.Name))
		}
	}
	return config, nil
}
