// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

// Slipway is the CLI for the slipway boot orchestration library. It
// boots machine profiles against a stand-in core (a full dress
// rehearsal of the load pipeline), inspects resolved boot plans,
// mounts guest filesystem manifests over FUSE, and renders the
// embedded reference documentation.
package main

import (
	"fmt"
	"os"

	"github.com/slipway-systems/slipway/cmd/slipway/cli"
	"github.com/slipway-systems/slipway/lib/version"
)

func main() {
	if err := rootCommand().Execute(os.Args[1:]); err != nil {
		// Commands that print their own output return an ExitError
		// with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "slipway",
		Description: `Slipway: boot resource orchestration for virtual machines.

Load firmware, disk images, saved state, and filesystem manifests from
local files or HTTP sources, assemble them into a frozen machine
configuration, and hand the result to a machine core.`,
		Subcommands: []*cli.Command{
			bootCommand(),
			inspectCommand(),
			fsCommand(),
			docsCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("slipway %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Dry-boot a profile: fetch and verify everything it names",
				Command:     "slipway boot alpine",
			},
			{
				Description: "Show what a profile would load, without loading it",
				Command:     "slipway inspect alpine",
			},
			{
				Description: "Mount a guest filesystem manifest for inspection",
				Command:     "slipway fs mount rootfs.json /mnt/guest",
			},
			{
				Description: "Read the profile format reference",
				Command:     "slipway docs profiles",
			},
		},
	}
}
