// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/slipway-systems/slipway/lib/event"
)

// runWithProgress runs action while rendering its bus events as a
// progress display. On a terminal it shows an interactive per-resource
// progress bar; otherwise it prints one plain line per resource, safe
// for logs and CI output. Ctrl+C in interactive mode cancels the
// action's context and waits for it to unwind.
//
// The subscription starts before the action so no event is missed.
func runWithProgress(ctx context.Context, bus *event.Bus, names []string, interactive bool, action func(context.Context) error) error {
	subCtx, cancelSub := context.WithCancel(ctx)
	defer cancelSub()
	events, _ := bus.Subscribe(subCtx, "load/", "machine/")

	if interactive {
		return runInteractive(ctx, events, names, action)
	}
	return runPlain(ctx, os.Stderr, events, names, action)
}

// runPlain prints one line per resource plus terminal lifecycle lines.
// After the action returns it flushes events that were published before
// completion but are still in the subscriber queue.
func runPlain(ctx context.Context, w io.Writer, events <-chan *event.Envelope, names []string, action func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- action(ctx) }()

	printer := &plainPrinter{w: w, names: names, lastIndex: -1}

	var err error
	for running := true; running; {
		select {
		case envelope := <-events:
			printer.print(envelope)
		case err = <-done:
			running = false
		}
	}

	// Flush stragglers: everything terminal was published before the
	// action returned, it just may not have crossed the queue yet.
	for {
		select {
		case envelope := <-events:
			printer.print(envelope)
		case <-time.After(100 * time.Millisecond):
			return err
		}
	}
}

// plainPrinter renders bus envelopes as log-friendly lines. Transfer
// ticks collapse to one line per resource.
type plainPrinter struct {
	w         io.Writer
	names     []string
	lastIndex int
}

func (p *plainPrinter) print(envelope *event.Envelope) {
	switch payload := envelope.Event.(type) {
	case event.DownloadProgress:
		if payload.FileIndex == p.lastIndex {
			return
		}
		p.lastIndex = payload.FileIndex
		fmt.Fprintf(p.w, "[boot] resource %d/%d: %s\n",
			payload.FileIndex+1, payload.FileCount, p.name(payload.FileIndex))
	case event.LoadComplete:
		fmt.Fprintf(p.w, "[boot] %d resources loaded\n", payload.FileCount)
	case event.LoadFailed:
		if payload.FileIndex >= 0 {
			fmt.Fprintf(p.w, "[boot] failed at resource %d/%d (%s): %s\n",
				payload.FileIndex+1, len(p.names), payload.Name, payload.Error)
			return
		}
		fmt.Fprintf(p.w, "[boot] failed: %s\n", payload.Error)
	case event.MachineReady:
		if payload.Restored {
			fmt.Fprintf(p.w, "[boot] machine ready (saved state restored)\n")
			return
		}
		fmt.Fprintf(p.w, "[boot] machine ready\n")
	}
}

func (p *plainPrinter) name(index int) string {
	if index < 0 || index >= len(p.names) {
		return "?"
	}
	return p.names[index]
}

// runInteractive drives the bubbletea progress display. The action runs
// on its own goroutine; bus envelopes and the action's result arrive as
// program messages.
func runInteractive(ctx context.Context, events <-chan *event.Envelope, names []string, action func(context.Context) error) error {
	actionCtx, cancelAction := context.WithCancel(ctx)
	defer cancelAction()

	model := newProgressModel(names)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		err := action(actionCtx)
		done <- err
		program.Send(actionDoneMsg{})
	}()
	go func() {
		for {
			select {
			case envelope := <-events:
				program.Send(envelopeMsg{envelope})
			case <-ctx.Done():
				return
			}
		}
	}()

	if _, err := program.Run(); err != nil {
		cancelAction()
		<-done
		return fmt.Errorf("progress display: %w", err)
	}

	if model.cancelled {
		cancelAction()
	}
	return <-done
}

// envelopeMsg wraps a bus envelope for delivery through the bubbletea
// message loop.
type envelopeMsg struct {
	envelope *event.Envelope
}

// actionDoneMsg signals that the boot pipeline returned. The result
// travels on the done channel, not in the message: the program only
// needs to know when to quit.
type actionDoneMsg struct{}

var (
	stylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleActive  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// resourceState is what the display knows about one request.
type resourceState int

const (
	statePending resourceState = iota
	stateLoading
	stateDone
	stateFailed
)

// progressModel is the bubbletea model for the boot progress display:
// one line per resource with a transfer bar on the active one.
type progressModel struct {
	names  []string
	states []resourceState
	sizes  []int64

	bar    progress.Model
	loaded int64
	total  int64

	ready     bool
	restored  bool
	failure   string
	finished  bool
	cancelled bool
	width     int
}

func newProgressModel(names []string) *progressModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return &progressModel{
		names:  names,
		states: make([]resourceState, len(names)),
		sizes:  make([]int64, len(names)),
		bar:    bar,
		width:  80,
	}
}

func (m *progressModel) Init() tea.Cmd { return nil }

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			// Stay up until the pipeline unwinds; actionDoneMsg quits.
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 40
		if barWidth < 10 {
			barWidth = 10
		}
		if barWidth > 50 {
			barWidth = 50
		}
		m.bar.Width = barWidth
	case envelopeMsg:
		m.apply(msg.envelope)
	case actionDoneMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one bus envelope into the display state.
func (m *progressModel) apply(envelope *event.Envelope) {
	switch payload := envelope.Event.(type) {
	case event.DownloadProgress:
		if payload.FileIndex < 0 || payload.FileIndex >= len(m.states) {
			return
		}
		// Indices are strictly ordered: everything before the one
		// reporting has completed.
		for i := 0; i < payload.FileIndex; i++ {
			if m.states[i] == stateLoading {
				m.states[i] = stateDone
			}
		}
		m.states[payload.FileIndex] = stateLoading
		m.loaded, m.total = payload.Loaded, payload.Total
		m.sizes[payload.FileIndex] = payload.Loaded
		if payload.Total >= 0 && payload.Loaded == payload.Total {
			m.states[payload.FileIndex] = stateDone
		}
	case event.LoadComplete:
		for i := range m.states {
			m.states[i] = stateDone
		}
	case event.LoadFailed:
		m.failure = payload.Error
		if payload.FileIndex >= 0 && payload.FileIndex < len(m.states) {
			m.states[payload.FileIndex] = stateFailed
		}
	case event.MachineReady:
		m.ready = true
		m.restored = payload.Restored
	}
}

func (m *progressModel) View() string {
	// Leave the final state on screen as plain text; bubbletea clears
	// the live view on quit.
	if m.finished {
		return ""
	}

	var b strings.Builder
	for i, name := range m.names {
		switch m.states[i] {
		case statePending:
			fmt.Fprintf(&b, "  %s\n", stylePending.Render("· "+name))
		case stateDone:
			fmt.Fprintf(&b, "  %s\n", styleDone.Render("✓ "+name+" ("+formatSize(m.sizes[i])+")"))
		case stateFailed:
			fmt.Fprintf(&b, "  %s\n", styleFailed.Render("✗ "+name))
		case stateLoading:
			line := styleActive.Render("→ " + name)
			if m.total > 0 {
				line += "  " + m.bar.ViewAs(float64(m.loaded)/float64(m.total)) +
					"  " + formatSize(m.loaded) + " / " + formatSize(m.total)
			} else {
				line += "  " + formatSize(m.loaded)
			}
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	switch {
	case m.cancelled:
		b.WriteString(styleFailed.Render("  cancelling...") + "\n")
	case m.failure != "":
		b.WriteString(styleFailed.Render("  boot failed: "+m.failure) + "\n")
	case m.ready && m.restored:
		b.WriteString(styleDone.Render("  machine ready (saved state restored)") + "\n")
	case m.ready:
		b.WriteString(styleDone.Render("  machine ready") + "\n")
	}
	return b.String()
}

// formatSize returns a human-readable byte count.
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
