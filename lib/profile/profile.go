// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/slipway-systems/slipway/lib/boot"
	"github.com/slipway-systems/slipway/lib/resource"
)

// Profile is the on-disk machine profile schema. String fields keep
// their authored spelling; [Profile.Options] parses and validates
// them all at once so an author sees every mistake in one pass.
type Profile struct {
	// Name identifies the profile in listings and log output.
	// Defaults to the file name without its extension.
	Name string `yaml:"name" json:"name"`

	// MemorySize is the guest RAM size: a plain byte count or an
	// integer with a K, M, or G suffix (binary multiples, "128M").
	// Empty means the boot default.
	MemorySize string `yaml:"memory_size" json:"memory_size"`

	// VGAMemorySize is the video memory size, same spelling as
	// MemorySize.
	VGAMemorySize string `yaml:"vga_memory_size" json:"vga_memory_size"`

	// BootOrder is the BIOS boot preference word, written in any
	// strconv base-0 integer spelling ("0x213", "531"). Empty means
	// the boot default.
	BootOrder string `yaml:"boot_order" json:"boot_order"`

	// Autostart starts core execution as soon as boot completes.
	Autostart bool `yaml:"autostart" json:"autostart"`

	// Resource slots. A nil slot is absent — nothing is loaded for it.
	BIOS         *Slot `yaml:"bios" json:"bios"`
	VGABIOS      *Slot `yaml:"vga_bios" json:"vga_bios"`
	FloppyA      *Slot `yaml:"fda" json:"fda"`
	FloppyB      *Slot `yaml:"fdb" json:"fdb"`
	HDA          *Slot `yaml:"hda" json:"hda"`
	HDB          *Slot `yaml:"hdb" json:"hdb"`
	CDROM        *Slot `yaml:"cdrom" json:"cdrom"`
	InitialState *Slot `yaml:"initial_state" json:"initial_state"`
	Filesystem   *Slot `yaml:"fs" json:"fs"`

	// dir is the directory the profile was loaded from; relative
	// slot file paths resolve against it. Empty for profiles parsed
	// from bytes.
	dir string
}

// Slot describes one resource slot: where the bytes come from and how
// the loader should treat them.
type Slot struct {
	// File is a local path. Relative paths resolve against the
	// profile file's directory, so a profile and its images can move
	// together.
	File string `yaml:"file" json:"file"`

	// URL is a remote HTTP(S) reference. Exactly one of File and URL
	// must be set.
	URL string `yaml:"url" json:"url"`

	// Size is the expected payload size ("512M"). It feeds the
	// loading heuristic for remote resources whose size is not known
	// before the first request.
	Size string `yaml:"size" json:"size"`

	// Mode overrides the loading strategy: "auto", "memory", "whole",
	// or "range". Empty means auto.
	Mode string `yaml:"mode" json:"mode"`

	// Digest is the hex digest the fully loaded payload must match.
	// Empty disables verification.
	Digest string `yaml:"digest" json:"digest"`
}

// Load reads and parses a profile file. The format is chosen by
// extension: .yaml/.yml parse as YAML, .json/.jsonc as JSONC. Slot
// file paths in the profile resolve relative to the file's directory.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	profile, err := parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	profile.dir = filepath.Dir(path)
	if profile.Name == "" {
		base := filepath.Base(path)
		profile.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return profile, nil
}

// parse unmarshals profile bytes in the format implied by ext.
func parse(data []byte, ext string) (*Profile, error) {
	var profile Profile
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
	case ".json", ".jsonc":
		stripped := jsonc.ToJSON(data)
		if err := json.Unmarshal(stripped, &profile); err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("unrecognized profile extension %q (want .yaml, .yml, .json, or .jsonc)", ext)
	}
	return &profile, nil
}

// Options converts the profile into typed boot options, parsing every
// human-friendly field and validating every slot. All problems are
// reported together via errors.Join, each prefixed with the field or
// slot it belongs to.
func (p *Profile) Options() (boot.Options, error) {
	var opts boot.Options
	var errs []error

	if p.MemorySize != "" {
		size, err := ParseSize(p.MemorySize)
		if err != nil {
			errs = append(errs, fmt.Errorf("memory_size: %w", err))
		}
		opts.MemorySize = size
	}
	if p.VGAMemorySize != "" {
		size, err := ParseSize(p.VGAMemorySize)
		if err != nil {
			errs = append(errs, fmt.Errorf("vga_memory_size: %w", err))
		}
		opts.VGAMemorySize = size
	}
	if p.BootOrder != "" {
		order, err := strconv.ParseInt(p.BootOrder, 0, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("boot_order: invalid integer %q", p.BootOrder))
		}
		opts.BootOrder = int(order)
	}
	opts.Autostart = p.Autostart

	slots := []struct {
		name string
		slot *Slot
		dest **resource.Spec
	}{
		{boot.SlotBIOS, p.BIOS, &opts.BIOS},
		{boot.SlotVGABIOS, p.VGABIOS, &opts.VGABIOS},
		{boot.SlotFloppyA, p.FloppyA, &opts.FloppyA},
		{boot.SlotFloppyB, p.FloppyB, &opts.FloppyB},
		{boot.SlotHDA, p.HDA, &opts.HDA},
		{boot.SlotHDB, p.HDB, &opts.HDB},
		{boot.SlotCDROM, p.CDROM, &opts.CDROM},
		{boot.SlotInitialState, p.InitialState, &opts.InitialState},
		{boot.SlotFilesystem, p.Filesystem, &opts.Filesystem},
	}
	for _, entry := range slots {
		if entry.slot == nil {
			continue
		}
		spec, err := entry.slot.spec(p.dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.name, err))
			continue
		}
		*entry.dest = spec
	}

	if len(errs) > 0 {
		return boot.Options{}, errors.Join(errs...)
	}
	return opts, nil
}

// spec converts a slot into a resource spec, resolving relative file
// paths against dir.
func (s *Slot) spec(dir string) (*resource.Spec, error) {
	var errs []error

	var spec *resource.Spec
	switch {
	case s.File != "" && s.URL != "":
		errs = append(errs, fmt.Errorf("file and url are mutually exclusive"))
	case s.File != "":
		path := s.File
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, path)
		}
		spec = resource.FromFile(path)
	case s.URL != "":
		spec = resource.FromURL(s.URL)
	default:
		errs = append(errs, fmt.Errorf("one of file or url is required"))
	}

	if s.Size != "" {
		size, err := ParseSize(s.Size)
		if err != nil {
			errs = append(errs, fmt.Errorf("size: %w", err))
		} else if spec != nil {
			spec.SizeHint = size
		}
	}

	mode, err := parseMode(s.Mode)
	if err != nil {
		errs = append(errs, err)
	} else if spec != nil {
		spec.Mode = mode
	}

	if s.Digest != "" {
		digest, err := resource.ParseDigest(s.Digest)
		if err != nil {
			errs = append(errs, fmt.Errorf("digest: %w", err))
		} else if spec != nil {
			spec.Digest = digest
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return spec, nil
}

// parseMode maps a profile mode string to a loading mode. The strings
// match [resource.Mode.String], so a mode round-trips through a
// rendered plan unchanged.
func parseMode(s string) (resource.Mode, error) {
	switch s {
	case "", "auto":
		return resource.ModeAuto, nil
	case "memory":
		return resource.ModeMemory, nil
	case "whole":
		return resource.ModeWhole, nil
	case "range":
		return resource.ModeRange, nil
	default:
		return resource.ModeAuto, fmt.Errorf("unknown loading mode %q (want auto, memory, whole, or range)", s)
	}
}

// ParseSize parses a human-friendly byte size: a plain integer byte
// count, or an integer with a K, M, or G suffix meaning binary
// multiples (so "64M" is 64 MiB).
func ParseSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty size")
	}

	shift := 0
	switch trimmed[len(trimmed)-1] {
	case 'k', 'K':
		shift = 10
	case 'm', 'M':
		shift = 20
	case 'g', 'G':
		shift = 30
	}
	digits := trimmed
	if shift != 0 {
		digits = strings.TrimSpace(trimmed[:len(trimmed)-1])
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative size %q", s)
	}
	result := value << shift
	if shift != 0 && result>>shift != value {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return result, nil
}
