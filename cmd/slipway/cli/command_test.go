// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "slipway",
		Subcommands: []*Command{
			{
				Name: "boot",
				Run: func(args []string) error {
					called = "boot"
					return nil
				},
			},
			{
				Name: "inspect",
				Run: func(args []string) error {
					called = "inspect"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"inspect"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "inspect" {
		t.Errorf("dispatched to %q, want %q", called, "inspect")
	}
}

func TestExecuteNestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "slipway",
		Subcommands: []*Command{
			{
				Name: "fs",
				Subcommands: []*Command{
					{
						Name: "mount",
						Run: func(args []string) error {
							called = "fs mount"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"fs", "mount", "/mnt/guest"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "fs mount" {
		t.Errorf("dispatched to %q, want %q", called, "fs mount")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "/mnt/guest" {
		t.Errorf("args = %v, want [/mnt/guest]", receivedArgs)
	}
}

func TestExecuteFlagParsing(t *testing.T) {
	var profileDir string
	var positional string

	command := &Command{
		Name: "boot",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("boot", pflag.ContinueOnError)
			flagSet.StringVar(&profileDir, "profile-dir", "/etc/slipway", "profile directory")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				positional = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--profile-dir", "/opt/profiles", "alpine"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if profileDir != "/opt/profiles" {
		t.Errorf("profileDir = %q, want %q", profileDir, "/opt/profiles")
	}
	if positional != "alpine" {
		t.Errorf("positional = %q, want %q", positional, "alpine")
	}
}

func TestExecuteUnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "boot",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("boot", pflag.ContinueOnError)
			flagSet.Bool("plain", false, "plain progress output")
			flagSet.String("profile-dir", "", "profile directory")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--palin"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	message := err.Error()
	if !strings.Contains(message, "did you mean --plain") {
		t.Errorf("error = %q, want suggestion for '--plain'", message)
	}
	if !strings.Contains(message, "palin") {
		t.Errorf("error = %q, should mention the bad flag", message)
	}
	if !strings.Contains(message, "--help") {
		t.Errorf("error = %q, should point to --help", message)
	}
}

func TestExecuteUnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{
		Name: "boot",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("boot", pflag.ContinueOnError)
			flagSet.Bool("plain", false, "plain progress output")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err.Error())
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err.Error())
	}
}

func TestExecuteUnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "slipway",
		Subcommands: []*Command{
			{Name: "boot"},
			{Name: "inspect"},
			{Name: "docs"},
		},
	}

	err := root.Execute([]string{"bot"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), "did you mean \"boot\"") {
		t.Errorf("error = %q, want suggestion for 'boot'", err.Error())
	}
}

func TestExecuteUnknownSubcommandNoSuggestion(t *testing.T) {
	root := &Command{
		Name: "slipway",
		Subcommands: []*Command{
			{Name: "boot"},
			{Name: "inspect"},
		},
	}

	err := root.Execute([]string{"zzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not contain suggestion for distant input", err.Error())
	}
}

func TestExecuteHelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:    "slipway",
				Summary: "Boot resource orchestration",
				Subcommands: []*Command{
					{Name: "boot", Summary: "Boot a machine profile"},
				},
			}

			if err := root.Execute([]string{helpArg}); err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
		})
	}
}

func TestExecuteNoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name: "slipway",
		Subcommands: []*Command{
			{Name: "boot", Summary: "Boot a machine profile"},
		},
	}

	err := root.Execute([]string{})
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
}

func TestPrintHelp(t *testing.T) {
	command := &Command{
		Name:        "slipway",
		Description: "Boot resource orchestration for virtual machines.",
		Subcommands: []*Command{
			{Name: "boot", Summary: "Load a profile and bring the machine to ready"},
			{Name: "inspect", Summary: "Show the resolved boot plan"},
			{Name: "version", Summary: "Print version information"},
		},
		Examples: []Example{
			{
				Description: "Boot the alpine profile",
				Command:     "slipway boot alpine",
			},
			{
				Description: "Show what a profile would load",
				Command:     "slipway inspect alpine",
			},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Boot resource orchestration for virtual machines.",
		"Usage:",
		"slipway <command> [flags]",
		"Commands:",
		"boot",
		"Load a profile and bring the machine to ready",
		"inspect",
		"Show the resolved boot plan",
		"Examples:",
		"slipway boot alpine",
		"slipway inspect alpine",
		"Run 'slipway <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestPrintHelpWithFlags(t *testing.T) {
	command := &Command{
		Name:    "boot",
		Summary: "Load a profile and bring the machine to ready",
		Usage:   "slipway boot [flags] <profile>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("boot", pflag.ContinueOnError)
			flagSet.String("profile-dir", "/etc/slipway/profiles", "directory searched for profiles")
			flagSet.Bool("plain", false, "plain progress output")
			return flagSet
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"slipway boot [flags] <profile>",
		"Flags:",
		"profile-dir",
		"plain",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestFullName(t *testing.T) {
	root := &Command{Name: "slipway"}
	fs := &Command{Name: "fs", parent: root}
	mount := &Command{Name: "mount", parent: fs}

	if got := root.fullName(); got != "slipway" {
		t.Errorf("root.fullName() = %q, want %q", got, "slipway")
	}
	if got := fs.fullName(); got != "slipway fs" {
		t.Errorf("fs.fullName() = %q, want %q", got, "slipway fs")
	}
	if got := mount.fullName(); got != "slipway fs mount" {
		t.Errorf("mount.fullName() = %q, want %q", got, "slipway fs mount")
	}
}
