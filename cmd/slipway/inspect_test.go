// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInspectRendersPlan(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "demo.yaml")
	profileText := `
memory_size: 128M
bios:
  file: seabios.bin
hda:
  url: https://example.org/disk.img
  size: 64M
`
	if err := os.WriteFile(profilePath, []byte(profileText), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runInspect(&out, profilePath, dir); err != nil {
		t.Fatalf("runInspect() error: %v", err)
	}
	got := out.String()

	if !strings.Contains(got, "memory 128.0 MB") {
		t.Errorf("output missing memory size:\n%s", got)
	}
	// The firmware slot is boot-critical: eager, whole-loaded.
	if !strings.Contains(got, "bios") || !strings.Contains(got, "whole") {
		t.Errorf("output missing bios whole-mode row:\n%s", got)
	}
	// 64M is over the lazy threshold, so the disk resolves to range.
	if !strings.Contains(got, "range") {
		t.Errorf("output missing hda range-mode row:\n%s", got)
	}
}

func TestRunInspectRejectsBrokenProfile(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "broken.yaml")
	// Memory mode on a file-backed slot can never be satisfied.
	profileText := `
hda:
  file: disk.img
  mode: memory
`
	if err := os.WriteFile(profilePath, []byte(profileText), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := runInspect(&out, profilePath, dir)
	if err == nil {
		t.Fatal("runInspect() succeeded for a profile with memory-mode file slot")
	}
	if !strings.Contains(err.Error(), "hda") {
		t.Errorf("error = %v, want it to name the hda slot", err)
	}
}

func TestRunInspectMissingProfileSuggests(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"alpine.yaml", "freedos.jsonc"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	err := runInspect(&out, "alpin", dir)
	if err == nil {
		t.Fatal("runInspect() succeeded for a missing profile name")
	}
	if !strings.Contains(err.Error(), "alpine") {
		t.Errorf("error = %v, want a suggestion for %q", err, "alpine")
	}
}
