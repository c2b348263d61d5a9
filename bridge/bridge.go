// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/slipway-systems/slipway/lib/guestfs"
)

// Bridge exposes callback-based file operations over a guest
// filesystem. All fields are optional except FS.
type Bridge struct {
	// FS is the guest filesystem the bridge operates against. The
	// bridge only calls its resolution, open, read, create, and
	// data-ready registration operations; it never touches node
	// internals.
	FS guestfs.FileSystem

	// Logger receives structured log output. If nil, slog.Default()
	// is used. Per-operation events are logged at Debug level.
	Logger *slog.Logger
}

// logger returns the configured logger or the default.
func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// NotFoundError reports that a bridge operation could not resolve its
// path. It is the only error kind the bridge itself produces; errors
// from inside the filesystem pass through callbacks unchanged.
type NotFoundError struct {
	// Op is the operation that failed: "create_file" or "read_file".
	Op string

	// Path is the path as the caller supplied it.
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bridge: %s %q: no such file or directory", e.Op, e.Path)
}

// IsNotFound reports whether err is a bridge path-resolution failure.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// CreateFile materializes a binary file with the given content at
// filePath. The parent directory must already exist; an existing file
// at filePath is replaced. An empty leaf name (a path ending in "/")
// or an unresolvable parent directory yields *NotFoundError, and the
// filesystem is not touched.
//
// callback fires exactly once, on its own goroutine, after the write
// settled — nil on success, the failure otherwise. A nil callback is
// allowed; failures are then only logged.
func (b *Bridge) CreateFile(filePath string, data []byte, callback func(error)) {
	finish := func(err error) {
		if err != nil {
			if callback == nil {
				// No callback to deliver to; the log is the only
				// record of the failure.
				b.logger().Error("create_file failed", "path", filePath, "error", err)
			} else {
				b.logger().Debug("create_file failed", "path", filePath, "error", err)
			}
		}
		if callback != nil {
			go callback(err)
		}
	}

	// Split before any path cleaning: "boot/" must read as an empty
	// leaf, not as the directory "boot".
	dir, leaf := path.Split(filePath)
	if leaf == "" {
		finish(&NotFoundError{Op: "create_file", Path: filePath})
		return
	}

	parent := b.FS.Resolve(dir)
	if parent.Node == guestfs.InvalidNode {
		finish(&NotFoundError{Op: "create_file", Path: filePath})
		return
	}

	if _, err := b.FS.CreateFile(parent.Node, leaf, data); err != nil {
		finish(err)
		return
	}
	b.logger().Debug("file created", "path", filePath, "size", len(data))
	finish(nil)
}

// ReadFile delivers the full content of the file at filePath. If the
// file's content is still arriving, the callback is registered with
// the filesystem and fires once the content lands; an already resident
// file answers immediately. Concurrent reads of one path each register
// and fire independently.
//
// callback fires exactly once, on its own goroutine, with exactly one
// of (data, err) set: the path did not resolve → *NotFoundError; the
// node could not be opened or read → the filesystem's error; success →
// the content (empty files deliver a non-nil empty slice).
func (b *Bridge) ReadFile(filePath string, callback func([]byte, error)) {
	finish := func(data []byte, err error) {
		if err != nil {
			b.logger().Debug("read_file failed", "path", filePath, "error", err)
		}
		if err == nil && data == nil {
			data = []byte{}
		}
		go callback(data, err)
	}

	info := b.FS.Resolve(filePath)
	if info.Node == guestfs.InvalidNode {
		finish(nil, &NotFoundError{Op: "read_file", Path: filePath})
		return
	}

	if err := b.FS.Open(info.Node); err != nil {
		finish(nil, err)
		return
	}

	// The registration fires exactly once, possibly synchronously,
	// possibly later from whatever goroutine supplies the content.
	// Either way the caller sees it through finish's goroutine.
	err := b.FS.Subscribe(info.Node, func() {
		data, err := b.FS.ReadAll(info.Node)
		if err != nil {
			finish(nil, err)
			return
		}
		b.logger().Debug("file read", "path", filePath, "size", len(data))
		finish(data, nil)
	})
	if err != nil {
		finish(nil, err)
	}
}
