// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package termmd

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

// stripped renders markdown and returns ANSI-stripped visible text.
func stripped(input string, width int) string {
	return ansi.Strip(Render(input, width))
}

// raw renders markdown and returns the raw ANSI-styled output.
func raw(input string, width int) string {
	return Render(input, width)
}

func TestRenderEmpty(t *testing.T) {
	if result := Render("", 80); result != "" {
		t.Errorf("expected empty output for empty input, got %q", result)
	}
}

func TestRenderParagraphReflow(t *testing.T) {
	// Reference docs are hard-wrapped in their source files; soft
	// breaks must reflow to the terminal width.
	input := "A profile names every boot\nresource a machine loads, from\nthe BIOS image to the CD drive."
	result := stripped(input, 120)

	if strings.Contains(result, "\n") {
		t.Errorf("expected single line at width=120, got:\n%s", result)
	}
	if !strings.Contains(result, "boot resource a") {
		t.Errorf("expected soft break converted to space, got:\n%s", result)
	}
}

func TestRenderParagraphWrapsToWidth(t *testing.T) {
	input := "Disk images larger than memory stream on demand instead of loading whole."
	for _, line := range strings.Split(stripped(input, 30), "\n") {
		if len(line) > 30 {
			t.Errorf("line exceeds width 30: %q (len=%d)", line, len(line))
		}
	}
}

func TestRenderHardLineBreak(t *testing.T) {
	// Trailing double space is a hard break; it must survive reflow.
	result := stripped("memory_size: 128M  \nvga_memory_size: 8M", 80)
	if !strings.Contains(result, "memory_size: 128M\nvga_memory_size: 8M") {
		t.Errorf("expected hard line break preserved, got:\n%s", result)
	}
}

func TestRenderHeading(t *testing.T) {
	input := "# Boot slots\n\nEach slot holds one resource."
	result := stripped(input, 80)

	if !strings.Contains(result, "Boot slots") {
		t.Error("missing heading text")
	}
	if !strings.Contains(result, "Each slot holds one resource.") {
		t.Error("missing body text")
	}
	if raw(input, 80) == result {
		t.Error("expected ANSI styling on heading output")
	}
}

func TestRenderEmphasis(t *testing.T) {
	input := "Modes are *advisory*; the loader may **refuse** a ~~streamed~~ ranged BIOS."
	result := stripped(input, 80)

	for _, want := range []string{"advisory", "refuse", "streamed", "ranged"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in:\n%s", want, result)
		}
	}
	if raw(input, 80) == result {
		t.Error("expected ANSI styling on emphasis")
	}
}

func TestRenderCodeSpan(t *testing.T) {
	result := stripped("Set `mode: range` for large disks.", 80)
	if !strings.Contains(result, "mode: range") {
		t.Errorf("missing code span text:\n%s", result)
	}
}

func TestRenderFencedCodeBlock(t *testing.T) {
	input := "```yaml\nhda:\n  file: alpine.img\n  mode: range\n```"
	result := stripped(input, 80)

	if !strings.Contains(result, "hda:") || !strings.Contains(result, "mode: range") {
		t.Fatalf("missing code content:\n%s", result)
	}
	// YAML is a known lexer, so the block should carry highlighting.
	if raw(input, 80) == result {
		t.Error("expected syntax highlighting escapes")
	}
}

func TestRenderCodeBlockNotReflowed(t *testing.T) {
	line := "initial_state: { url: \"https://images.example.net/v86state.bin\", size: 8M }"
	result := stripped("```\n"+line+"\n```", 24)

	// Code lines keep their exact shape even past the render width.
	if !strings.Contains(result, line) {
		t.Errorf("code line should survive unwrapped:\n%s", result)
	}
}

func TestRenderBlockquote(t *testing.T) {
	result := stripped("> Snapshots embed their own settings.", 80)
	if !strings.Contains(result, "│ Snapshots embed their own settings.") {
		t.Errorf("expected quote prefix, got:\n%s", result)
	}
}

func TestRenderBlockquoteReflow(t *testing.T) {
	input := "> A quoted note that was\n> hard wrapped in the source"
	result := stripped(input, 80)
	if !strings.Contains(result, "│ A quoted note that was hard wrapped in the source") {
		t.Errorf("quote should reflow behind its prefix:\n%s", result)
	}
}

func TestRenderUnorderedList(t *testing.T) {
	result := stripped("- fetch\n- verify\n- install", 80)
	for _, want := range []string{"- fetch", "- verify", "- install"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing bullet %q in:\n%s", want, result)
		}
	}
}

func TestRenderOrderedList(t *testing.T) {
	result := stripped("1. resolve the profile\n2. assemble options\n3. boot", 80)
	for _, want := range []string{"1. resolve the profile", "2. assemble options", "3. boot"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing item %q in:\n%s", want, result)
		}
	}
}

func TestRenderNestedList(t *testing.T) {
	input := "- disks\n  - hda\n  - hdb"
	result := stripped(input, 80)

	if !strings.Contains(result, "- disks") {
		t.Errorf("outer bullet missing:\n%s", result)
	}
	// Inner bullets indent under the outer item body.
	if !strings.Contains(result, "  - hda") || !strings.Contains(result, "  - hdb") {
		t.Errorf("inner bullets not indented:\n%s", result)
	}
}

func TestRenderListItemWrapsUnderBullet(t *testing.T) {
	input := "- " + strings.Repeat("spin ", 20)
	lines := strings.Split(stripped(input, 30), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected wrapped list item, got:\n%s", strings.Join(lines, "\n"))
	}
	if !strings.HasPrefix(lines[0], "- ") {
		t.Errorf("first line should carry the bullet: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  ") {
		t.Errorf("continuation should align under the bullet: %q", lines[1])
	}
}

func TestRenderThematicBreak(t *testing.T) {
	result := stripped("above\n\n---\n\nbelow", 40)
	if !strings.Contains(result, "────") {
		t.Errorf("expected a horizontal rule:\n%s", result)
	}
}

func TestRenderLink(t *testing.T) {
	result := stripped("see [the manifest format](https://example.net/manifest)", 80)
	if !strings.Contains(result, "the manifest format") {
		t.Errorf("link text missing:\n%s", result)
	}
	if !strings.Contains(result, "(https://example.net/manifest)") {
		t.Errorf("link target missing:\n%s", result)
	}
}

func TestRenderTable(t *testing.T) {
	input := "| Slot | Holds |\n| --- | --- |\n| hda | first hard disk |\n| fs | filesystem manifest |"
	result := stripped(input, 80)

	if !strings.Contains(result, "Slot") || !strings.Contains(result, "Holds") {
		t.Fatalf("header missing:\n%s", result)
	}
	if !strings.Contains(result, "hda") || !strings.Contains(result, "filesystem manifest") {
		t.Errorf("body cells missing:\n%s", result)
	}

	// Second-column values start at the same offset on every line.
	var offsets []int
	for _, line := range strings.Split(result, "\n") {
		for _, cell := range []string{"Holds", "first hard disk", "filesystem manifest"} {
			if idx := strings.Index(line, cell); idx >= 0 {
				offsets = append(offsets, idx)
			}
		}
	}
	if len(offsets) != 3 {
		t.Fatalf("expected 3 second-column values, found %d:\n%s", len(offsets), result)
	}
	if offsets[0] != offsets[1] || offsets[1] != offsets[2] {
		t.Errorf("second column misaligned (offsets %v):\n%s", offsets, result)
	}
}

func TestRenderWithThemeOverride(t *testing.T) {
	theme := Theme{Text: "15", Faint: "8", Heading: "10", Rule: "7"}
	result := RenderWithTheme("# Green heading", theme, 80)
	if !strings.Contains(ansi.Strip(result), "Green heading") {
		t.Errorf("heading text missing:\n%s", result)
	}
}
