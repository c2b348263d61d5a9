// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/slipway-systems/slipway/cmd/slipway/cli"
	"github.com/slipway-systems/slipway/lib/boot"
	"github.com/slipway-systems/slipway/lib/resource"
)

func inspectCommand() *cli.Command {
	var profileDir string

	return &cli.Command{
		Name:    "inspect",
		Summary: "Show what a profile would load, without loading it",
		Description: `Resolve a profile into its boot plan and print it: the machine
scalars after defaults, and one row per resource slot with its source,
the loading strategy the request resolves to, and whether the resource
is boot-critical (forced fully resident before the core initializes).

Assembly is pure, so inspect performs no I/O against the profile's
sources. A profile that fails inspection fails boot the same way.`,
		Usage: "slipway inspect [flags] <profile>",
		Examples: []cli.Example{
			{
				Description: "Inspect a named profile from the profile directory",
				Command:     "slipway inspect alpine",
			},
			{
				Description: "Inspect a profile file directly",
				Command:     "slipway inspect ./machines/freedos.jsonc",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flagSet.StringVar(&profileDir, "profile-dir", defaultProfileDir(), "directory searched for profile names")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected 1 profile argument, got %d\n\nusage: slipway inspect [flags] <profile>", len(args))
			}
			return runInspect(os.Stdout, args[0], profileDir)
		},
	}
}

func runInspect(w io.Writer, name, profileDir string) error {
	prof, err := loadProfile(name, profileDir)
	if err != nil {
		return err
	}
	options, err := prof.Options()
	if err != nil {
		return fmt.Errorf("profile %q: %w", prof.Name, err)
	}
	plan, err := boot.Assemble(options)
	if err != nil {
		return fmt.Errorf("profile %q: %w", prof.Name, err)
	}

	fmt.Fprintf(w, "%s\n", prof.Name)
	fmt.Fprintf(w, "memory %s, vga %s, boot order %#x",
		formatSize(plan.MemorySize), formatSize(plan.VGAMemorySize), plan.BootOrder)
	if plan.Autostart {
		fmt.Fprintf(w, ", autostart")
	}
	fmt.Fprintf(w, "\n\n")

	if len(plan.Requests) == 0 {
		fmt.Fprintf(w, "no resources\n")
		return nil
	}

	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "SLOT\tSOURCE\tMODE\tSIZE\tEAGER\tDIGEST\n")
	for _, request := range plan.Requests {
		// Assemble validated every request, so this cannot fail here.
		mode, err := resource.ResolveMode(request)
		if err != nil {
			return err
		}

		size := "-"
		if request.SizeHint > 0 {
			size = formatSize(request.SizeHint)
		}
		eager := "-"
		if request.Eager {
			eager = "yes"
		}
		digest := "-"
		if !request.Digest.IsZero() {
			digest = "verified"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			request.Name, request.Source.String(), mode, size, eager, digest)
	}
	return tw.Flush()
}
