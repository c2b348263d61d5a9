// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"filippo.io/age"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/slipway-systems/slipway/cmd/slipway/cli"
	"github.com/slipway-systems/slipway/lib/boot"
	"github.com/slipway-systems/slipway/lib/cache"
	"github.com/slipway-systems/slipway/lib/event"
	"github.com/slipway-systems/slipway/lib/guestfs"
	"github.com/slipway-systems/slipway/lib/loader"
	"github.com/slipway-systems/slipway/lib/profile"
	"github.com/slipway-systems/slipway/lib/resource"
)

func bootCommand() *cli.Command {
	var (
		profileDir   string
		identityFile string
		cacheDir     string
		plain        bool
	)

	return &cli.Command{
		Name:    "boot",
		Summary: "Load a profile's resources and bring the machine to ready",
		Description: `Run the full boot pipeline for a profile: resolve the plan, fetch and
verify every resource, decode saved state, and load the guest
filesystem manifest. The machine core is a stand-in that accepts the
configuration without executing a guest, so this is a complete dress
rehearsal of a boot — useful for validating profiles and warming the
resource cache.

The profile argument is a name resolved in the profile directory, or a
path to a profile file.`,
		Usage: "slipway boot [flags] <profile>",
		Examples: []cli.Example{
			{
				Description: "Boot a named profile from the profile directory",
				Command:     "slipway boot alpine",
			},
			{
				Description: "Boot a profile file directly, caching downloads",
				Command:     "slipway boot ./machines/freedos.jsonc --cache-dir ~/.cache/slipway",
			},
			{
				Description: "Boot a profile with an encrypted saved state",
				Command:     "slipway boot snapshot-demo --identity-file ~/.config/slipway/key.txt",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("boot", pflag.ContinueOnError)
			flagSet.StringVar(&profileDir, "profile-dir", defaultProfileDir(), "directory searched for profile names")
			flagSet.StringVar(&identityFile, "identity-file", "", "age identity file for encrypted saved state")
			flagSet.StringVar(&cacheDir, "cache-dir", "", "cache downloaded resources in this directory")
			flagSet.BoolVar(&plain, "plain", false, "plain progress lines even on a terminal")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected 1 profile argument, got %d\n\nusage: slipway boot [flags] <profile>", len(args))
			}
			return runBoot(args[0], profileDir, identityFile, cacheDir, plain)
		},
	}
}

func runBoot(name, profileDir, identityFile, cacheDir string, plain bool) error {
	logger := cli.NewLogger().With("command", "boot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prof, err := loadProfile(name, profileDir)
	if err != nil {
		return err
	}
	options, err := prof.Options()
	if err != nil {
		return fmt.Errorf("profile %q: %w", prof.Name, err)
	}

	if identityFile != "" {
		identities, err := loadIdentities(identityFile)
		if err != nil {
			return err
		}
		options.SnapshotIdentities = identities
	}

	bus := event.NewBus()
	load := &loader.Loader{Bus: bus, Logger: logger}
	if cacheDir != "" {
		store, err := cache.Open(cache.Options{Dir: cacheDir, Logger: logger})
		if err != nil {
			return fmt.Errorf("opening resource cache: %w", err)
		}
		load.Cache = store
	}

	// Assemble is pure, so running it here just to label the progress
	// display does not duplicate any I/O. Boot assembles again itself.
	plan, err := boot.Assemble(options)
	if err != nil {
		return fmt.Errorf("profile %q: %w", prof.Name, err)
	}
	names := make([]string, len(plan.Requests))
	for i, request := range plan.Requests {
		names[i] = request.Name
	}

	core := &checkCore{logger: logger}
	deps := boot.Deps{
		Loader: load,
		FS:     guestfs.NewMemFS(nil),
		Bus:    bus,
		Logger: logger,
	}

	var config *boot.Config
	action := func(ctx context.Context) error {
		var err error
		config, err = boot.Boot(ctx, core, deps, options)
		return err
	}

	interactive := !plain && term.IsTerminal(int(os.Stderr.Fd()))
	if err := runWithProgress(ctx, bus, names, interactive, action); err != nil {
		return fmt.Errorf("booting profile %q: %w", prof.Name, err)
	}

	printBootSummary(os.Stdout, prof.Name, config, core.restored)
	return nil
}

// loadProfile loads the argument as a file path when it points at an
// existing file, and otherwise resolves it as a profile name in the
// profile directory.
func loadProfile(name, profileDir string) (*profile.Profile, error) {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return profile.Load(name)
	}
	path, err := profile.Resolve(profileDir, name)
	if err != nil {
		return nil, err
	}
	return profile.Load(path)
}

// defaultProfileDir returns the directory searched for profile names:
// SLIPWAY_PROFILE_DIR when set, the user config directory otherwise.
func defaultProfileDir() string {
	if dir := os.Getenv("SLIPWAY_PROFILE_DIR"); dir != "" {
		return dir
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(configDir, "slipway", "profiles")
}

// loadIdentities parses age identities from a key file.
func loadIdentities(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	return identities, nil
}

// checkCore stands in for a machine core. It accepts the frozen
// configuration, the decoded saved state, and the run request without
// executing a guest; booting against it exercises everything up to the
// core boundary.
type checkCore struct {
	logger   *slog.Logger
	restored bool
}

var _ boot.Core = (*checkCore)(nil)

func (c *checkCore) Init(ctx context.Context, config *boot.Config) error {
	c.logger.Debug("stand-in core received configuration",
		"memory_size", config.MemorySize,
		"vga_memory_size", config.VGAMemorySize,
	)
	return nil
}

func (c *checkCore) RestoreState(ctx context.Context, state []byte) error {
	c.logger.Debug("stand-in core received saved state", "size", len(state))
	c.restored = true
	return nil
}

func (c *checkCore) Run(ctx context.Context) error {
	// Nothing to execute. The profile's autostart preference is
	// honored by the pipeline; the stand-in returns immediately.
	return nil
}

// printBootSummary renders the loaded configuration: one line per
// populated slot with its size and residency.
func printBootSummary(w io.Writer, name string, config *boot.Config, restored bool) {
	outcome := "machine ready"
	if restored {
		outcome = "machine ready (saved state restored)"
	}
	fmt.Fprintf(w, "%s: %s\n", name, outcome)
	fmt.Fprintf(w, "memory %s, vga %s, boot order %#x\n\n",
		formatSize(config.MemorySize), formatSize(config.VGAMemorySize), config.BootOrder)

	slots := []struct {
		name   string
		buffer resource.Buffer
	}{
		{boot.SlotBIOS, config.BIOS},
		{boot.SlotVGABIOS, config.VGABIOS},
		{boot.SlotFloppyA, config.FloppyA},
		{boot.SlotFloppyB, config.FloppyB},
		{boot.SlotHDA, config.HDA},
		{boot.SlotHDB, config.HDB},
		{boot.SlotCDROM, config.CDROM},
		{boot.SlotInitialState, config.InitialState},
		{boot.SlotFilesystem, config.Filesystem},
	}

	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "SLOT\tSIZE\tRESIDENT\n")
	for _, slot := range slots {
		if slot.buffer == nil {
			continue
		}
		resident := "yes"
		if slot.buffer.Bytes() == nil {
			resident = "no (ranged)"
		}
		size := "unknown"
		if s := slot.buffer.Size(); s >= 0 {
			size = formatSize(s)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", slot.name, size, resident)
	}
	tw.Flush()
}
