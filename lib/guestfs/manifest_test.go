// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package guestfs

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
)

func marshalManifest(t *testing.T, m Manifest) []byte {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshaling manifest: %v", err)
	}
	return data
}

func TestLoadManifest(t *testing.T) {
	doc := marshalManifest(t, Manifest{
		Version: ManifestVersion,
		Root: []ManifestEntry{
			{Name: "boot", Dir: true, Children: []ManifestEntry{
				{Name: "vmlinuz", Data: []byte("kernel image")},
				{Name: "initrd.img", Size: 8192},
			}},
			{Name: "etc", Dir: true, Children: []ManifestEntry{
				{Name: "hostname", Data: []byte("slipway\n"), Size: 8},
			}},
		},
	})

	m := NewMemFS(nil)
	if err := m.LoadManifest(doc); err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}

	// Inline content is resident immediately.
	info := m.Resolve("/boot/vmlinuz")
	if info.Node == InvalidNode {
		t.Fatalf("Resolve(/boot/vmlinuz) found nothing")
	}
	data, err := m.ReadAll(info.Node)
	if err != nil {
		t.Fatalf("ReadAll(vmlinuz) failed: %v", err)
	}
	if !bytes.Equal(data, []byte("kernel image")) {
		t.Fatalf("ReadAll(vmlinuz) = %q, want %q", data, "kernel image")
	}

	// A size-only entry becomes a pending node with the declared size.
	pending := m.Resolve("/boot/initrd.img")
	if pending.Node == InvalidNode {
		t.Fatalf("Resolve(/boot/initrd.img) found nothing")
	}
	if _, err := m.ReadAll(pending.Node); !errdefs.IsUnavailable(err) {
		t.Fatalf("ReadAll(pending): err = %v, want unavailable", err)
	}
	stat, err := m.Stat(pending.Node)
	if err != nil {
		t.Fatalf("Stat(pending) failed: %v", err)
	}
	if stat.Size != 8192 {
		t.Fatalf("Stat(pending).Size = %d, want 8192", stat.Size)
	}
	if err := m.Fulfill(pending.Node, []byte("initrd")); err != nil {
		t.Fatalf("Fulfill failed: %v", err)
	}
	if got, err := m.ReadAll(pending.Node); err != nil || !bytes.Equal(got, []byte("initrd")) {
		t.Fatalf("ReadAll after Fulfill = %q, %v; want initrd", got, err)
	}

	// Directories report as such.
	boot := m.Resolve("/boot")
	statBoot, err := m.Stat(boot.Node)
	if err != nil {
		t.Fatalf("Stat(/boot) failed: %v", err)
	}
	if !statBoot.IsDir() {
		t.Fatalf("/boot does not report as a directory")
	}
}

func TestLoadManifestReplacesTree(t *testing.T) {
	m, _, _ := buildTree(t)

	doc := marshalManifest(t, Manifest{
		Version: ManifestVersion,
		Root:    []ManifestEntry{{Name: "readme.txt", Data: []byte("fresh tree")}},
	})
	if err := m.LoadManifest(doc); err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}

	if info := m.Resolve("/boot/vmlinuz"); info.Node != InvalidNode {
		t.Fatalf("old tree still resolvable after LoadManifest: %+v", info)
	}
	info := m.Resolve("/readme.txt")
	if info.Node == InvalidNode {
		t.Fatalf("new tree missing /readme.txt")
	}
	if data, err := m.ReadAll(info.Node); err != nil || !bytes.Equal(data, []byte("fresh tree")) {
		t.Fatalf("ReadAll(/readme.txt) = %q, %v; want fresh tree", data, err)
	}
}

// An empty "data" field is an empty resident file, distinct from a
// size-only pending entry.
func TestLoadManifestEmptyData(t *testing.T) {
	doc := []byte(`{"version":1,"root":[{"name":".keep","data":""}]}`)

	m := NewMemFS(nil)
	if err := m.LoadManifest(doc); err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	info := m.Resolve("/.keep")
	if info.Node == InvalidNode {
		t.Fatalf("Resolve(/.keep) found nothing")
	}
	data, err := m.ReadAll(info.Node)
	if err != nil {
		t.Fatalf("ReadAll(/.keep) failed: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("ReadAll(/.keep) = %q, want empty", data)
	}
}

func TestLoadManifestRejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "malformed json",
			doc:  `{"version":1,`,
			want: "parsing filesystem manifest",
		},
		{
			name: "wrong version",
			doc:  `{"version":2,"root":[]}`,
			want: "unsupported filesystem manifest version 2",
		},
		{
			name: "duplicate names",
			doc:  `{"version":1,"root":[{"name":"a","size":1},{"name":"a","size":2}]}`,
			want: "duplicate name",
		},
		{
			name: "children on file",
			doc:  `{"version":1,"root":[{"name":"a","size":1,"children":[{"name":"b"}]}]}`,
			want: "children on a non-directory",
		},
		{
			name: "size mismatch",
			doc:  `{"version":1,"root":[{"name":"a","size":99,"data":"aGk="}]}`,
			want: "does not match",
		},
		{
			name: "bad entry name",
			doc:  `{"version":1,"root":[{"name":"a/b","size":1}]}`,
			want: "invalid file name",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _, _ := buildTree(t)
			err := m.LoadManifest([]byte(tc.doc))
			if err == nil {
				t.Fatalf("LoadManifest accepted %s", tc.doc)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
			// A rejected manifest leaves the existing tree in place.
			if info := m.Resolve("/boot/vmlinuz"); info.Node == InvalidNode {
				t.Fatalf("existing tree lost after rejected manifest")
			}
		})
	}
}
