// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/slipway-systems/slipway/lib/guestfs"
)

// fuseAvailable checks whether /dev/fuse is accessible. Tests that
// need a real FUSE mount call this and skip if the device is absent.
func fuseAvailable(t *testing.T) {
	t.Helper()
	_, err := os.Stat("/dev/fuse")
	if err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

// testMount builds a guest tree, mounts it, and returns the
// mountpoint and the filesystem for further mutation.
func testMount(t *testing.T) (mountpoint string, fs *guestfs.MemFS) {
	t.Helper()
	fuseAvailable(t)

	fs = guestfs.NewMemFS(nil)
	boot, err := fs.Mkdir(fs.Root(), "boot")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := fs.CreateFile(boot, "vmlinuz", []byte("kernel image")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	etc, err := fs.Mkdir(fs.Root(), "etc")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := fs.CreateFile(etc, "hostname", []byte("slipway\n")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	mountpoint = filepath.Join(t.TempDir(), "mount")
	server, err := Mount(Options{
		Mountpoint: mountpoint,
		FS:         fs,
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	t.Cleanup(func() {
		if err := server.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
	})

	return mountpoint, fs
}

func TestMountRootListing(t *testing.T) {
	mountpoint, _ := testMount(t)

	entries, err := os.ReadDir(mountpoint)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	names := make(map[string]bool)
	for _, entry := range entries {
		names[entry.Name()] = true
		if !entry.IsDir() {
			t.Errorf("%s should be a directory", entry.Name())
		}
	}
	if !names["boot"] || !names["etc"] {
		t.Errorf("root listing = %v, want boot and etc", names)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestMountReadFile(t *testing.T) {
	mountpoint, _ := testMount(t)

	got, err := os.ReadFile(filepath.Join(mountpoint, "boot", "vmlinuz"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, []byte("kernel image")) {
		t.Errorf("got %q, want %q", got, "kernel image")
	}
}

func TestMountStatAndPartialRead(t *testing.T) {
	mountpoint, _ := testMount(t)

	path := filepath.Join(mountpoint, "etc", "hostname")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != int64(len("slipway\n")) {
		t.Errorf("size = %d, want %d", info.Size(), len("slipway\n"))
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()

	buf := make([]byte, 3)
	if _, err := file.ReadAt(buf, 4); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != "way" {
		t.Errorf("partial read: got %q, want %q", buf, "way")
	}
}

func TestMountNotFound(t *testing.T) {
	mountpoint, _ := testMount(t)

	_, err := os.ReadFile(filepath.Join(mountpoint, "boot", "missing"))
	if err == nil {
		t.Fatal("expected error reading nonexistent guest file")
	}
	if !os.IsNotExist(err) {
		t.Errorf("expected ENOENT, got: %v", err)
	}
}

func TestMountReadOnly(t *testing.T) {
	mountpoint, _ := testMount(t)

	if err := os.WriteFile(filepath.Join(mountpoint, "boot", "new"), []byte("x"), 0o644); err == nil {
		t.Fatal("expected error writing to read-only mount")
	}
	file, err := os.OpenFile(filepath.Join(mountpoint, "boot", "vmlinuz"), os.O_WRONLY, 0)
	if err == nil {
		file.Close()
		t.Fatal("expected error opening guest file for writing")
	}
}

func TestMountPendingContent(t *testing.T) {
	mountpoint, fs := testMount(t)

	boot := fs.Resolve("/boot")
	pending, err := fs.CreatePending(boot.Node, "initrd.img", 4096)
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}

	path := filepath.Join(mountpoint, "boot", "initrd.img")

	// The entry is visible with its declared size before the bytes
	// arrive.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 4096 {
		t.Errorf("pending size = %d, want 4096", info.Size())
	}

	// Reading it reports EAGAIN until fulfillment.
	_, err = os.ReadFile(path)
	if err == nil {
		t.Fatal("expected error reading pending guest file")
	}
	if !errors.Is(err, syscall.EAGAIN) {
		t.Errorf("expected EAGAIN, got: %v", err)
	}

	payload := bytes.Repeat([]byte{0xaa}, 4096)
	if err := fs.Fulfill(pending, payload); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile after fulfill: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("fulfilled content mismatch through the mount")
	}
}

func TestMountSeesReplacedContent(t *testing.T) {
	mountpoint, fs := testMount(t)

	path := filepath.Join(mountpoint, "etc", "hostname")
	if got, err := os.ReadFile(path); err != nil || string(got) != "slipway\n" {
		t.Fatalf("initial read: %q, %v", got, err)
	}

	etc := fs.Resolve("/etc")
	if _, err := fs.CreateFile(etc.Node, "hostname", []byte("renamed\n")); err != nil {
		t.Fatalf("CreateFile replace: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile after replace: %v", err)
	}
	if string(got) != "renamed\n" {
		t.Errorf("replaced content: got %q, want %q", got, "renamed\n")
	}
}

func TestMountRequiresOptions(t *testing.T) {
	if _, err := Mount(Options{FS: guestfs.NewMemFS(nil)}); err == nil {
		t.Error("Mount without a mountpoint should fail")
	}
	if _, err := Mount(Options{Mountpoint: filepath.Join(t.TempDir(), "m")}); err == nil {
		t.Error("Mount without a filesystem should fail")
	}
}
