// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/slipway-systems/slipway/cmd/slipway/cli"
	"github.com/slipway-systems/slipway/lib/guestfs"
	guestfuse "github.com/slipway-systems/slipway/lib/guestfs/fuse"
)

func fsCommand() *cli.Command {
	return &cli.Command{
		Name:    "fs",
		Summary: "Work with guest filesystem manifests",
		Description: `Operations on guest filesystem manifests — the JSON documents the
boot pipeline hands to the filesystem collaborator.`,
		Subcommands: []*cli.Command{
			fsMountCommand(),
		},
	}
}

func fsMountCommand() *cli.Command {
	var allowOther bool

	return &cli.Command{
		Name:    "mount",
		Summary: "Mount a manifest read-only over FUSE",
		Description: `Load a filesystem manifest into an in-memory guest tree and mount a
read-only FUSE view of it, so the guest's files can be inspected with
ordinary tools. The mount stays up until interrupted or unmounted
externally (fusermount -u).

Writes are rejected with EROFS: the only write path into a guest
filesystem is the file bridge, which belongs to the host application
owning the machine.`,
		Usage: "slipway fs mount [flags] <manifest> <mountpoint>",
		Examples: []cli.Example{
			{
				Description: "Mount a manifest and browse it",
				Command:     "slipway fs mount rootfs.json /mnt/guest",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mount", pflag.ContinueOnError)
			flagSet.BoolVar(&allowOther, "allow-other", false, "let other users access the mount (needs user_allow_other in /etc/fuse.conf)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <manifest> and <mountpoint> arguments, got %d\n\nusage: slipway fs mount [flags] <manifest> <mountpoint>", len(args))
			}
			return runFSMount(args[0], args[1], allowOther)
		},
	}
}

func runFSMount(manifestPath, mountpoint string, allowOther bool) error {
	logger := cli.NewLogger().With("command", "fs mount")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	fsys := guestfs.NewMemFS(nil)
	if err := fsys.LoadManifest(data); err != nil {
		return fmt.Errorf("%s: %w", manifestPath, err)
	}

	server, err := guestfuse.Mount(guestfuse.Options{
		Mountpoint: mountpoint,
		FS:         fsys,
		AllowOther: allowOther,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wait() returns when the kernel connection dies — an external
	// fusermount -u ends the command the same way a signal does.
	unmounted := make(chan struct{})
	go func() {
		server.Wait()
		close(unmounted)
	}()

	select {
	case <-unmounted:
		logger.Info("mount ended externally", "mountpoint", mountpoint)
		return nil
	case <-ctx.Done():
	}

	if err := server.Unmount(); err != nil {
		return fmt.Errorf("unmounting %s: %w", mountpoint, err)
	}
	<-unmounted
	logger.Info("guest filesystem unmounted", "mountpoint", mountpoint)
	return nil
}
