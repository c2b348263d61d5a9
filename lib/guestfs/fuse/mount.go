// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"syscall"
	"time"

	"github.com/containerd/errdefs"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/slipway-systems/slipway/lib/guestfs"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the guest tree is mounted.
	Mountpoint string

	// FS is the guest filesystem to expose.
	FS guestfs.FileSystem

	// AllowOther permits other users (including root) to access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, errors go to a
	// stderr text handler.
	Logger *slog.Logger
}

// Mount mounts a read-only view of the guest filesystem at the
// configured mountpoint. The caller must call Unmount on the returned
// server when done. The mountpoint directory is created if it does
// not exist.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.FS == nil {
		return nil, fmt.Errorf("guest filesystem is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	// Ensure the mountpoint exists.
	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	state := &mountState{fs: options.FS, logger: options.Logger}
	root := &guestNode{state: state, path: "/"}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "slipway-guest",
			Name:       "slipway",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("guest FUSE filesystem mounted", "mountpoint", options.Mountpoint)
	return server, nil
}

// mountState is shared by every node of one mount.
type mountState struct {
	fs     guestfs.FileSystem
	logger *slog.Logger
}

// guestNode presents one guest path as a FUSE inode. Every operation
// re-resolves the path: node ids are not stable across manifest
// replacement, and the guest may replace files while the mount is
// live.
type guestNode struct {
	gofuse.Inode
	state *mountState
	path  string
}

var _ gofuse.InodeEmbedder = (*guestNode)(nil)
var _ gofuse.NodeLookuper = (*guestNode)(nil)
var _ gofuse.NodeReaddirer = (*guestNode)(nil)
var _ gofuse.NodeGetattrer = (*guestNode)(nil)
var _ gofuse.NodeOpener = (*guestNode)(nil)
var _ gofuse.NodeReader = (*guestNode)(nil)

func (g *guestNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childPath := path.Join(g.path, name)
	info := g.state.fs.Resolve(childPath)
	if info.Node == guestfs.InvalidNode {
		return nil, syscall.ENOENT
	}

	stat, err := g.state.fs.Stat(info.Node)
	if err != nil {
		g.state.logger.Error("stat failed for guest node", "path", childPath, "error", err)
		return nil, errno(err)
	}

	mode := uint32(syscall.S_IFREG)
	if stat.IsDir() {
		mode = syscall.S_IFDIR
	}
	child := g.NewPersistentInode(ctx, &guestNode{state: g.state, path: childPath},
		gofuse.StableAttr{Mode: mode})
	fillAttr(stat, &out.Attr)
	return child, 0
}

func (g *guestNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	info := g.state.fs.Resolve(g.path)
	if info.Node == guestfs.InvalidNode {
		return syscall.ENOENT
	}
	stat, err := g.state.fs.Stat(info.Node)
	if err != nil {
		return errno(err)
	}
	fillAttr(stat, &out.Attr)
	return 0
}

func (g *guestNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	info := g.state.fs.Resolve(g.path)
	if info.Node == guestfs.InvalidNode {
		return nil, syscall.ENOENT
	}
	children, err := g.state.fs.List(info.Node)
	if err != nil {
		return nil, errno(err)
	}

	entries := make([]fuse.DirEntry, 0, len(children))
	for _, child := range children {
		mode := uint32(syscall.S_IFREG)
		if child.Mode.IsDir() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: child.Name, Mode: mode})
	}
	return &sliceDirStream{entries: entries}, 0
}

func (g *guestNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	// Reject anything that isn't a read.
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}

	info := g.state.fs.Resolve(g.path)
	if info.Node == guestfs.InvalidNode {
		return nil, 0, syscall.ENOENT
	}
	if err := g.state.fs.Open(info.Node); err != nil {
		return nil, 0, errno(err)
	}

	// No FOPEN_KEEP_CACHE: the machine may replace this file's
	// content through the bridge while the mount is live.
	return nil, 0, 0
}

func (g *guestNode) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	info := g.state.fs.Resolve(g.path)
	if info.Node == guestfs.InvalidNode {
		return nil, syscall.ENOENT
	}

	data, err := g.state.fs.ReadAll(info.Node)
	if err != nil {
		// In-flight content is an expected state, not a fault.
		if !errdefs.IsUnavailable(err) {
			g.state.logger.Error("guest read failed", "path", g.path, "error", err)
		}
		return nil, errno(err)
	}

	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return fuse.ReadResultData(data[off:end]), 0
}

// fillAttr copies guest file info into a FUSE attribute block.
func fillAttr(info guestfs.FileInfo, out *fuse.Attr) {
	if info.IsDir() {
		out.Mode = syscall.S_IFDIR | 0o555
	} else {
		out.Mode = syscall.S_IFREG | 0o444
		out.Size = uint64(info.Size)
		out.Blocks = (out.Size + 511) / 512
	}
	out.SetTimes(nil, &info.MTime, &info.MTime)
}

// errno maps the collaborator's failure taxonomy onto FUSE error
// numbers. Content still in flight is EAGAIN: the read can be retried
// once the loader fulfills the node.
func errno(err error) syscall.Errno {
	switch {
	case errdefs.IsNotFound(err):
		return syscall.ENOENT
	case errdefs.IsInvalidArgument(err):
		return syscall.EINVAL
	case errdefs.IsUnavailable(err):
		return syscall.EAGAIN
	default:
		return syscall.EIO
	}
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
