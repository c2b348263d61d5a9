// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/slipway-systems/slipway/cmd/slipway/cli"
	"github.com/slipway-systems/slipway/lib/termmd"
)

//go:embed docs/*.md
var docFiles embed.FS

// docWidth caps rendered line length; narrower terminals win.
const docWidth = 80

func docsCommand() *cli.Command {
	return &cli.Command{
		Name:    "docs",
		Summary: "Read the embedded reference documentation",
		Description: `Render a reference document to the terminal. Without a topic, list
the available topics. Output piped somewhere other than a terminal is
raw markdown.`,
		Usage: "slipway docs [topic]",
		Examples: []cli.Example{
			{
				Description: "List available topics",
				Command:     "slipway docs",
			},
			{
				Description: "Read the profile format reference",
				Command:     "slipway docs profiles",
			},
		},
		Run: func(args []string) error {
			switch len(args) {
			case 0:
				return listDocTopics(os.Stdout)
			case 1:
				return renderDocTopic(args[0])
			default:
				return fmt.Errorf("expected at most 1 topic argument, got %d", len(args))
			}
		},
	}
}

// docTopics returns the embedded topic names, sorted.
func docTopics() ([]string, error) {
	entries, err := docFiles.ReadDir("docs")
	if err != nil {
		return nil, fmt.Errorf("reading embedded docs: %w", err)
	}
	var topics []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".md") {
			topics = append(topics, strings.TrimSuffix(name, ".md"))
		}
	}
	sort.Strings(topics)
	return topics, nil
}

func listDocTopics(w io.Writer) error {
	topics, err := docTopics()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Available topics:\n")
	for _, topic := range topics {
		fmt.Fprintf(w, "  %s\n", topic)
	}
	fmt.Fprintf(w, "\nRun 'slipway docs <topic>' to read one.\n")
	return nil
}

func renderDocTopic(topic string) error {
	data, err := docFiles.ReadFile("docs/" + topic + ".md")
	if err != nil {
		topics, listErr := docTopics()
		if listErr != nil {
			return listErr
		}
		return fmt.Errorf("no doc topic %q (available: %s)", topic, strings.Join(topics, ", "))
	}

	// Markdown is the fallback format, so piping to a file or pager
	// that can't take ANSI still yields something readable.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := os.Stdout.Write(data)
		return err
	}

	width := docWidth
	if terminalWidth, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && terminalWidth < width {
		width = terminalWidth
	}
	fmt.Print(termmd.Render(string(data), width))
	return nil
}
