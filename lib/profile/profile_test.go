// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slipway-systems/slipway/lib/resource"
)

// writeProfile writes content to name under a fresh temp directory and
// returns the full path.
func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing profile: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeProfile(t, "alpine.yaml", `
name: alpine
memory_size: 128M
vga_memory_size: 8M
boot_order: "0x123"
autostart: true
bios:
  file: seabios.bin
hda:
  url: https://images.example/alpine.img
  size: 512M
  mode: range
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "alpine" {
		t.Errorf("Name = %q, want alpine", p.Name)
	}

	opts, err := p.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.MemorySize != 128<<20 {
		t.Errorf("MemorySize = %d, want %d", opts.MemorySize, int64(128<<20))
	}
	if opts.VGAMemorySize != 8<<20 {
		t.Errorf("VGAMemorySize = %d, want %d", opts.VGAMemorySize, int64(8<<20))
	}
	if opts.BootOrder != 0x123 {
		t.Errorf("BootOrder = %#x, want 0x123", opts.BootOrder)
	}
	if !opts.Autostart {
		t.Error("Autostart should be true")
	}

	if opts.BIOS == nil {
		t.Fatal("BIOS slot should be set")
	}
	// Relative file paths resolve against the profile's directory.
	wantBIOS := filepath.Join(filepath.Dir(path), "seabios.bin")
	if got := opts.BIOS.Source.String(); got != wantBIOS {
		t.Errorf("BIOS source = %q, want %q", got, wantBIOS)
	}

	if opts.HDA == nil {
		t.Fatal("HDA slot should be set")
	}
	if got := opts.HDA.Source.String(); got != "https://images.example/alpine.img" {
		t.Errorf("HDA source = %q", got)
	}
	if opts.HDA.SizeHint != 512<<20 {
		t.Errorf("HDA SizeHint = %d, want %d", opts.HDA.SizeHint, int64(512<<20))
	}
	if opts.HDA.Mode != resource.ModeRange {
		t.Errorf("HDA Mode = %v, want range", opts.HDA.Mode)
	}

	if opts.CDROM != nil {
		t.Error("absent CDROM slot should stay nil")
	}
}

func TestLoadJSONC(t *testing.T) {
	path := writeProfile(t, "freedos.jsonc", `{
	// Comments and trailing commas are stripped before parsing.
	"memory_size": "32M",
	"fda": {
		"file": "/images/freedos.img",
		"mode": "whole",
	},
}`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "freedos" {
		t.Errorf("Name = %q, want the file stem freedos", p.Name)
	}

	opts, err := p.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.MemorySize != 32<<20 {
		t.Errorf("MemorySize = %d, want %d", opts.MemorySize, int64(32<<20))
	}
	if opts.FloppyA == nil {
		t.Fatal("fda slot should be set")
	}
	// Absolute paths are used as written.
	if got := opts.FloppyA.Source.String(); got != "/images/freedos.img" {
		t.Errorf("fda source = %q", got)
	}
	if opts.FloppyA.Mode != resource.ModeWhole {
		t.Errorf("fda Mode = %v, want whole", opts.FloppyA.Mode)
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	path := writeProfile(t, "machine.toml", "memory_size = 1")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized extension")
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeProfile(t, "broken.yaml", "memory_size: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestOptionsDigest(t *testing.T) {
	digest := resource.HashData([]byte("disk image"))
	path := writeProfile(t, "pinned.yaml", `
hda:
  file: disk.img
  digest: "`+resource.FormatDigest(digest)+`"
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts, err := p.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.HDA.Digest != digest {
		t.Errorf("HDA digest = %s, want %s",
			resource.FormatDigest(opts.HDA.Digest), resource.FormatDigest(digest))
	}
}

func TestOptionsCollectsAllErrors(t *testing.T) {
	path := writeProfile(t, "bad.yaml", `
memory_size: lots
boot_order: "later"
bios:
  file: a.bin
  url: https://images.example/a.bin
hda:
  file: disk.img
  mode: lazy
cdrom: {}
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = p.Options()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	// Every broken field shows up in one pass, prefixed with its
	// field or slot name.
	message := err.Error()
	for _, want := range []string{
		"memory_size:",
		"boot_order:",
		"bios: file and url are mutually exclusive",
		`hda: unknown loading mode "lazy"`,
		"cdrom: one of file or url is required",
	} {
		if !strings.Contains(message, want) {
			t.Errorf("error %q should mention %q", message, want)
		}
	}
}

func TestOptionsEmptyProfile(t *testing.T) {
	p, err := parse([]byte("{}"), ".json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts, err := p.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	// Zero scalars defer to the boot defaults; no slots are set.
	if opts.MemorySize != 0 || opts.VGAMemorySize != 0 || opts.BootOrder != 0 {
		t.Errorf("empty profile should leave scalars zero, got %+v", opts)
	}
	if opts.BIOS != nil || opts.HDA != nil || opts.Filesystem != nil {
		t.Error("empty profile should leave all slots nil")
	}
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"4096", 4096, true},
		{"64K", 64 << 10, true},
		{"64k", 64 << 10, true},
		{"128M", 128 << 20, true},
		{"2G", 2 << 30, true},
		{" 16M ", 16 << 20, true},
		{"", 0, false},
		{"M", 0, false},
		{"12.5M", 0, false},
		{"-1", 0, false},
		{"-4M", 0, false},
		{"9999999999G", 0, false},
		{"64MB", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ParseSize(%q): unexpected error %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ParseSize(%q) should fail, got %d", tc.in, got)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
