// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package guestfs

import (
	"bytes"
	"testing"
	"time"

	"github.com/containerd/errdefs"

	"github.com/slipway-systems/slipway/lib/clock"
)

// buildTree returns a MemFS with /boot/vmlinuz, /boot/initrd.img and
// /etc/hostname, plus the IDs of the nodes tests poke at.
func buildTree(t *testing.T) (m *MemFS, boot, vmlinuz NodeID) {
	t.Helper()
	m = NewMemFS(nil)
	boot, err := m.Mkdir(m.Root(), "boot")
	if err != nil {
		t.Fatalf("Mkdir(boot) failed: %v", err)
	}
	vmlinuz, err = m.CreateFile(boot, "vmlinuz", []byte("kernel image"))
	if err != nil {
		t.Fatalf("CreateFile(vmlinuz) failed: %v", err)
	}
	if _, err := m.CreateFile(boot, "initrd.img", []byte("initrd")); err != nil {
		t.Fatalf("CreateFile(initrd.img) failed: %v", err)
	}
	etc, err := m.Mkdir(m.Root(), "etc")
	if err != nil {
		t.Fatalf("Mkdir(etc) failed: %v", err)
	}
	if _, err := m.CreateFile(etc, "hostname", []byte("slipway\n")); err != nil {
		t.Fatalf("CreateFile(hostname) failed: %v", err)
	}
	return m, boot, vmlinuz
}

func TestResolve(t *testing.T) {
	m, boot, vmlinuz := buildTree(t)

	info := m.Resolve("/boot/vmlinuz")
	if info.Node != vmlinuz || info.Parent != boot || info.Name != "vmlinuz" {
		t.Fatalf("Resolve(/boot/vmlinuz) = %+v, want node %d parent %d", info, vmlinuz, boot)
	}

	// Paths are cleaned before walking.
	if got := m.Resolve("boot//vmlinuz/"); got.Node != vmlinuz {
		t.Fatalf("Resolve(boot//vmlinuz/) = %+v, want node %d", got, vmlinuz)
	}

	root := m.Resolve("/")
	if root.Node != m.Root() || root.Parent != InvalidNode {
		t.Fatalf("Resolve(/) = %+v, want root node %d", root, m.Root())
	}
}

func TestResolveMissing(t *testing.T) {
	m, boot, _ := buildTree(t)

	// Missing leaf under an existing directory: the parent is reported
	// so a caller can create the file there.
	info := m.Resolve("/boot/bzImage")
	if info.Node != InvalidNode || info.Parent != boot || info.Name != "bzImage" {
		t.Fatalf("Resolve(missing leaf) = %+v, want parent %d name bzImage", info, boot)
	}

	// Missing intermediate directory: nothing to attach to.
	info = m.Resolve("/srv/www/index.html")
	if info.Node != InvalidNode || info.Parent != InvalidNode {
		t.Fatalf("Resolve(missing intermediate) = %+v, want both invalid", info)
	}

	// A file used as an intermediate component resolves to nothing.
	info = m.Resolve("/boot/vmlinuz/extra")
	if info.Node != InvalidNode || info.Parent != InvalidNode {
		t.Fatalf("Resolve(file as directory) = %+v, want both invalid", info)
	}
}

func TestCreateFileAndReadAll(t *testing.T) {
	m, boot, vmlinuz := buildTree(t)

	data, err := m.ReadAll(vmlinuz)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(data, []byte("kernel image")) {
		t.Fatalf("ReadAll = %q, want %q", data, "kernel image")
	}

	// The returned slice is a copy; scribbling on it must not reach
	// the stored content.
	data[0] = 'X'
	again, err := m.ReadAll(vmlinuz)
	if err != nil {
		t.Fatalf("ReadAll after mutation failed: %v", err)
	}
	if again[0] != 'k' {
		t.Fatalf("stored content changed through a returned copy")
	}

	// Creating over an existing file replaces its content in place.
	id, err := m.CreateFile(boot, "vmlinuz", []byte("newer kernel"))
	if err != nil {
		t.Fatalf("CreateFile(replace) failed: %v", err)
	}
	if id != vmlinuz {
		t.Fatalf("replacement allocated node %d, want existing %d", id, vmlinuz)
	}
	replaced, err := m.ReadAll(vmlinuz)
	if err != nil {
		t.Fatalf("ReadAll(replaced) failed: %v", err)
	}
	if !bytes.Equal(replaced, []byte("newer kernel")) {
		t.Fatalf("ReadAll(replaced) = %q, want %q", replaced, "newer kernel")
	}

	// Creating over an existing directory is refused.
	if _, err := m.CreateFile(m.Root(), "boot", nil); !errdefs.IsAlreadyExists(err) {
		t.Fatalf("CreateFile over directory: err = %v, want already-exists", err)
	}
}

func TestCreateFileRejectsBadNames(t *testing.T) {
	m := NewMemFS(nil)
	for _, name := range []string{"", "a/b"} {
		if _, err := m.CreateFile(m.Root(), name, nil); !errdefs.IsInvalidArgument(err) {
			t.Errorf("CreateFile(%q): err = %v, want invalid-argument", name, err)
		}
	}
	if _, err := m.CreateFile(NodeID(999), "f", nil); !errdefs.IsNotFound(err) {
		t.Errorf("CreateFile under missing parent: err = %v, want not-found", err)
	}
}

func TestOpenErrors(t *testing.T) {
	m, boot, vmlinuz := buildTree(t)

	if err := m.Open(vmlinuz); err != nil {
		t.Fatalf("Open(file) failed: %v", err)
	}
	if err := m.Open(boot); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("Open(directory): err = %v, want invalid-argument", err)
	}
	if err := m.Open(NodeID(999)); !errdefs.IsNotFound(err) {
		t.Fatalf("Open(missing): err = %v, want not-found", err)
	}
}

func TestPendingFulfill(t *testing.T) {
	m := NewMemFS(nil)
	id, err := m.CreatePending(m.Root(), "hda.img", 4096)
	if err != nil {
		t.Fatalf("CreatePending failed: %v", err)
	}

	// Content is not resident yet.
	if _, err := m.ReadAll(id); !errdefs.IsUnavailable(err) {
		t.Fatalf("ReadAll(pending): err = %v, want unavailable", err)
	}
	info, err := m.Stat(id)
	if err != nil {
		t.Fatalf("Stat(pending) failed: %v", err)
	}
	if info.Size != 4096 {
		t.Fatalf("Stat(pending).Size = %d, want declared 4096", info.Size)
	}

	var fired int
	if err := m.Subscribe(id, func() { fired++ }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if fired != 0 {
		t.Fatalf("registration fired before Fulfill")
	}

	payload := []byte("disk image bytes")
	if err := m.Fulfill(id, payload); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}
	if fired != 1 {
		t.Fatalf("registration fired %d times, want 1", fired)
	}

	data, err := m.ReadAll(id)
	if err != nil {
		t.Fatalf("ReadAll after Fulfill failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("ReadAll = %q, want %q", data, payload)
	}
	info, err = m.Stat(id)
	if err != nil {
		t.Fatalf("Stat after Fulfill failed: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("Stat.Size = %d, want %d", info.Size, len(payload))
	}

	// A node fulfills once.
	if err := m.Fulfill(id, payload); !errdefs.IsAlreadyExists(err) {
		t.Fatalf("second Fulfill: err = %v, want already-exists", err)
	}
}

func TestSubscribeAfterReadyFiresImmediately(t *testing.T) {
	m, _, vmlinuz := buildTree(t)

	var fired int
	if err := m.Subscribe(vmlinuz, func() { fired++ }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if fired != 1 {
		t.Fatalf("registration on resident node fired %d times, want 1", fired)
	}
}

// A registration may call back into the filesystem; Fulfill must not
// hold the lock while firing it.
func TestFulfillReentrantCallback(t *testing.T) {
	m := NewMemFS(nil)
	id, err := m.CreatePending(m.Root(), "rootfs.img", 0)
	if err != nil {
		t.Fatalf("CreatePending failed: %v", err)
	}

	var got []byte
	if err := m.Subscribe(id, func() {
		data, err := m.ReadAll(id)
		if err != nil {
			t.Errorf("ReadAll inside registration failed: %v", err)
			return
		}
		got = data
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := m.Fulfill(id, []byte("contents")); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}
	if !bytes.Equal(got, []byte("contents")) {
		t.Fatalf("registration read %q, want %q", got, "contents")
	}
}

func TestList(t *testing.T) {
	m, boot, vmlinuz := buildTree(t)

	entries, err := m.List(boot)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(entries))
	}
	// Entries come back sorted by name.
	if entries[0].Name != "initrd.img" || entries[1].Name != "vmlinuz" {
		t.Fatalf("List order = [%s %s], want [initrd.img vmlinuz]", entries[0].Name, entries[1].Name)
	}
	if entries[1].Node != vmlinuz {
		t.Fatalf("List entry node = %d, want %d", entries[1].Node, vmlinuz)
	}
	if entries[1].Mode.IsDir() {
		t.Fatalf("file entry reports directory mode")
	}

	if _, err := m.List(vmlinuz); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("List(file): err = %v, want invalid-argument", err)
	}
}

func TestMkdirDuplicate(t *testing.T) {
	m, _, _ := buildTree(t)
	if _, err := m.Mkdir(m.Root(), "boot"); !errdefs.IsAlreadyExists(err) {
		t.Fatalf("Mkdir(duplicate): err = %v, want already-exists", err)
	}
}

func TestStatUsesClock(t *testing.T) {
	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	clk := clock.Fake(start)
	m := NewMemFS(clk)

	id, err := m.CreateFile(m.Root(), "config.yaml", []byte("memory: 64M\n"))
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	info, err := m.Stat(id)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.MTime.Equal(start) {
		t.Fatalf("MTime = %v, want %v", info.MTime, start)
	}
	if info.IsDir() {
		t.Fatalf("file reports IsDir")
	}

	clk.Advance(time.Minute)
	if _, err := m.CreateFile(m.Root(), "config.yaml", []byte("memory: 128M\n")); err != nil {
		t.Fatalf("CreateFile(replace) failed: %v", err)
	}
	info, err = m.Stat(id)
	if err != nil {
		t.Fatalf("Stat after replace failed: %v", err)
	}
	if !info.MTime.Equal(start.Add(time.Minute)) {
		t.Fatalf("MTime after replace = %v, want %v", info.MTime, start.Add(time.Minute))
	}
}
