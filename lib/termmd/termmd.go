// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package termmd

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Theme selects the colors for rendered elements. All colors are
// ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	Text    lipgloss.Color
	Faint   lipgloss.Color
	Heading lipgloss.Color
	Rule    lipgloss.Color
}

// DefaultTheme is the built-in color scheme, designed for dark
// terminals but readable on light ones.
var DefaultTheme = Theme{
	Text:    lipgloss.Color("252"),
	Faint:   lipgloss.Color("245"),
	Heading: lipgloss.Color("255"),
	Rule:    lipgloss.Color("240"),
}

// parserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to
// share — parsing creates per-call state via Parse(reader).
var (
	parserInstance goldmark.Markdown
	parserOnce     sync.Once
)

func parser() goldmark.Markdown {
	parserOnce.Do(func() {
		parserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parserInstance
}

// wrapBreakpoints are the characters ansi.Wrap may break a line at.
const wrapBreakpoints = " ,.;-+|"

// Render renders markdown as ANSI-styled terminal text wrapped to
// width, using the default theme.
func Render(input string, width int) string {
	return RenderWithTheme(input, DefaultTheme, width)
}

// RenderWithTheme is Render with a caller-supplied theme.
func RenderWithTheme(input string, theme Theme, width int) string {
	if input == "" {
		return ""
	}
	source := []byte(input)
	document := parser().Parser().Parse(text.NewReader(source))

	// Force the ANSI256 profile: this output is for terminal display,
	// and auto-detection would strip all color when tests or pagers
	// hold the other end of the pipe. SetColorProfile is needed
	// because the lipgloss renderer re-detects from the environment
	// unless a profile is set explicitly.
	lipRenderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lipRenderer.SetColorProfile(termenv.ANSI256)

	r := &renderer{
		source:      source,
		theme:       theme,
		width:       width,
		lipRenderer: lipRenderer,
	}
	ast.Walk(document, r.walk)

	return strings.TrimRight(r.output.String(), "\n")
}

// renderer walks a goldmark AST and produces styled terminal text. It
// uses a direct ast.Walk rather than goldmark's renderer interface
// because terminal rendering needs accumulate-then-wrap semantics:
// a block's inline content collects in a buffer and is word-wrapped
// as a unit when the block closes.
type renderer struct {
	source []byte
	theme  Theme
	width  int

	output strings.Builder

	// Inline accumulator, flushed with word-wrap when the containing
	// block closes.
	inline strings.Builder

	// Prefix stack for nested containers (blockquotes, list bodies).
	prefixStack     []prefixLevel
	linePrefix      string
	linePrefixWidth int

	// pendingBullet replaces linePrefix for the next emitted line,
	// then clears. Set when a list item opens.
	pendingBullet string

	// Inline style counters. Counters rather than booleans so nested
	// emphasis unwinds correctly.
	boldCount   int
	italicCount int
	strikeCount int

	listStack []listState

	lipRenderer *lipgloss.Renderer

	// Trailing newlines at the end of output, for blank-line
	// management between blocks.
	trailingNewlines int
}

type prefixLevel struct {
	text  string
	width int
}

type listState struct {
	ordered bool
	counter int
	tight   bool
}

func (r *renderer) style() lipgloss.Style {
	return r.lipRenderer.NewStyle()
}

// contentWidth is the width left for content after nesting prefixes,
// clamped so degenerate terminal widths still wrap sanely.
func (r *renderer) contentWidth() int {
	width := r.width - r.linePrefixWidth
	if width < 10 {
		width = 10
	}
	return width
}

func (r *renderer) pushPrefix(text string, visibleWidth int) {
	r.prefixStack = append(r.prefixStack, prefixLevel{text: text, width: visibleWidth})
	r.linePrefix += text
	r.linePrefixWidth += visibleWidth
}

func (r *renderer) popPrefix() {
	if len(r.prefixStack) == 0 {
		return
	}
	top := r.prefixStack[len(r.prefixStack)-1]
	r.prefixStack = r.prefixStack[:len(r.prefixStack)-1]
	r.linePrefix = r.linePrefix[:len(r.linePrefix)-len(top.text)]
	r.linePrefixWidth -= top.width
}

func (r *renderer) inTightList() bool {
	if len(r.listStack) == 0 {
		return false
	}
	return r.listStack[len(r.listStack)-1].tight
}

func (r *renderer) write(s string) {
	if s == "" {
		return
	}
	r.output.WriteString(s)

	trailing := 0
	entirelyNewlines := true
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			trailing++
		} else {
			entirelyNewlines = false
			break
		}
	}
	if entirelyNewlines {
		r.trailingNewlines += trailing
	} else {
		r.trailingNewlines = trailing
	}
}

func (r *renderer) ensureNewline() {
	if r.trailingNewlines < 1 {
		r.write("\n")
	}
}

func (r *renderer) ensureBlankLine() {
	for r.trailingNewlines < 2 {
		r.write("\n")
	}
}

// consumePrefix returns the prefix for the current line: the pending
// bullet if one is set (first line of a list item), otherwise the
// regular line prefix.
func (r *renderer) consumePrefix() string {
	if r.pendingBullet != "" {
		bullet := r.pendingBullet
		r.pendingBullet = ""
		return bullet
	}
	return r.linePrefix
}

// applyPrefixes prepends the line prefix to each line: the first line
// takes the pending bullet when set, continuation lines take the
// regular prefix.
func (r *renderer) applyPrefixes(content string) string {
	lines := strings.Split(content, "\n")
	var result strings.Builder
	for i, line := range lines {
		if i == 0 {
			result.WriteString(r.consumePrefix())
		} else {
			result.WriteString(r.linePrefix)
		}
		result.WriteString(line)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// flushInline word-wraps the accumulated inline content to the
// current width, applies line prefixes, and resets the buffer.
func (r *renderer) flushInline() string {
	content := r.inline.String()
	r.inline.Reset()
	if content == "" {
		return ""
	}
	return r.applyPrefixes(ansi.Wrap(content, r.contentWidth(), wrapBreakpoints))
}

// styledText applies the current inline style state to a fragment.
func (r *renderer) styledText(content string) string {
	style := r.style().Foreground(r.theme.Text)
	if r.boldCount > 0 {
		style = style.Bold(true)
	}
	if r.italicCount > 0 {
		style = style.Italic(true)
	}
	if r.strikeCount > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

// inlineContent renders a node's children into a string, saving and
// restoring the inline buffer and style state around the excursion.
func (r *renderer) inlineContent(node ast.Node) string {
	savedInline := r.inline.String()
	savedBold, savedItalic, savedStrike := r.boldCount, r.italicCount, r.strikeCount

	r.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, r.walk)
	}
	result := r.inline.String()

	r.inline.Reset()
	r.inline.WriteString(savedInline)
	r.boldCount, r.italicCount, r.strikeCount = savedBold, savedItalic, savedStrike

	return result
}

func (r *renderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {

	// Block nodes.
	case ast.KindDocument:
		// Nothing on entering or leaving.

	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			r.inline.Reset()
		} else if flushed := r.flushInline(); flushed != "" {
			r.write(flushed)
			r.ensureNewline()
			if !r.inTightList() {
				r.ensureBlankLine()
			}
		}

	case ast.KindHeading:
		if entering {
			r.inline.Reset()
		} else {
			r.leaveHeading(node.(*ast.Heading))
		}

	case ast.KindFencedCodeBlock:
		if entering {
			fenced := node.(*ast.FencedCodeBlock)
			r.renderCode(blockLines(fenced, r.source), string(fenced.Language(r.source)))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		if entering {
			r.renderCode(blockLines(node.(*ast.CodeBlock), r.source), "")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			r.pushPrefix("│ ", 2)
		} else {
			r.popPrefix()
			r.ensureBlankLine()
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			start := 0
			if list.IsOrdered() {
				start = list.Start
			}
			r.listStack = append(r.listStack, listState{
				ordered: list.IsOrdered(),
				counter: start,
				tight:   list.IsTight,
			})
		} else {
			if len(r.listStack) > 0 {
				r.listStack = r.listStack[:len(r.listStack)-1]
			}
			if !r.inTightList() {
				r.ensureBlankLine()
			}
		}

	case ast.KindListItem:
		if entering {
			r.enterListItem()
		} else {
			r.popPrefix()
			if r.inTightList() {
				r.ensureNewline()
			} else {
				r.ensureBlankLine()
			}
		}

	case ast.KindThematicBreak:
		if entering {
			rule := r.style().Foreground(r.theme.Rule).
				Render(strings.Repeat("─", r.contentWidth()))
			r.ensureBlankLine()
			r.write(r.applyPrefixes(rule))
			r.ensureNewline()
			r.ensureBlankLine()
		}

	// Inline nodes.
	case ast.KindText:
		if entering {
			r.handleText(node.(*ast.Text))
		}

	case ast.KindString:
		if entering {
			r.inline.WriteString(r.styledText(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		emphasis := node.(*ast.Emphasis)
		delta := 1
		if !entering {
			delta = -1
		}
		if emphasis.Level >= 2 {
			r.boldCount += delta
		} else {
			r.italicCount += delta
		}

	case ast.KindCodeSpan:
		if entering {
			r.renderCodeSpan(node)
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			link := node.(*ast.Link)
			r.inline.WriteString(r.inlineContent(link))
			if url := string(link.Destination); url != "" {
				r.inline.WriteString(" " + r.style().Foreground(r.theme.Faint).Render("("+url+")"))
			}
			return ast.WalkSkipChildren, nil
		}

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(r.source))
			r.inline.WriteString(r.style().Foreground(r.theme.Faint).Render(url))
		}

	// GFM extension nodes.
	case extast.KindStrikethrough:
		if entering {
			r.strikeCount++
		} else {
			r.strikeCount--
		}

	case extast.KindTable:
		if entering {
			r.renderTable(node.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}

	return ast.WalkContinue, nil
}

func (r *renderer) leaveHeading(heading *ast.Heading) {
	// Strip the inline styling styledText applied: the heading's own
	// style replaces it.
	content := ansi.Strip(r.inline.String())
	r.inline.Reset()
	if content == "" {
		return
	}

	style := r.style().Bold(true)
	if heading.Level <= 2 {
		style = style.Foreground(r.theme.Heading)
	} else {
		style = style.Foreground(r.theme.Text)
	}

	wrapped := ansi.Wrap(style.Render(content), r.contentWidth(), wrapBreakpoints)
	r.ensureBlankLine()
	r.write(r.applyPrefixes(wrapped))
	r.ensureNewline()
	r.ensureBlankLine()
}

// renderCode emits a code block: syntax-highlighted when the language
// is known, faint plain text otherwise. Code lines are prefixed but
// never reflowed.
func (r *renderer) renderCode(code, language string) {
	var rendered string
	if language != "" {
		var highlighted strings.Builder
		if err := quick.Highlight(&highlighted, code, language, "terminal256", "monokai"); err == nil {
			rendered = highlighted.String()
		}
	}
	if rendered == "" {
		rendered = r.style().Foreground(r.theme.Faint).Render(code)
	}

	r.ensureBlankLine()
	for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
		r.write(r.consumePrefix() + line)
		r.ensureNewline()
	}
	r.ensureBlankLine()
}

func (r *renderer) enterListItem() {
	if len(r.listStack) == 0 {
		return
	}
	top := &r.listStack[len(r.listStack)-1]

	var bullet string
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		top.counter++
	} else {
		bullet = "- "
	}

	// Bullets are ASCII, so byte length is visual width. The pending
	// bullet carries the current prefix so it replaces the whole
	// prefix on the item's first line.
	r.pendingBullet = r.linePrefix + bullet
	r.pushPrefix(strings.Repeat(" ", len(bullet)), len(bullet))
}

func (r *renderer) handleText(node *ast.Text) {
	r.inline.WriteString(r.styledText(string(node.Segment.Value(r.source))))

	if node.SoftLineBreak() {
		// Soft breaks become spaces so hard-wrapped source reflows at
		// the terminal's width.
		r.inline.WriteString(" ")
	}
	if node.HardLineBreak() {
		r.inline.WriteString("\n")
	}
}

func (r *renderer) renderCodeSpan(node ast.Node) {
	var code strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Text:
			code.Write(n.Segment.Value(r.source))
		case *ast.String:
			code.Write(n.Value)
		}
	}
	r.inline.WriteString(r.style().Foreground(r.theme.Faint).Render(code.String()))
}

// renderTable lays a table out as padded left-aligned columns with a
// rule under the header. Cells wider than the remaining terminal
// width are truncated; reference docs keep tables narrow.
func (r *renderer) renderTable(table *extast.Table) {
	var header []string
	var rows [][]string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.Kind() {
		case extast.KindTableHeader:
			header = r.collectRow(child)
		case extast.KindTableRow:
			rows = append(rows, r.collectRow(child))
		}
	}

	columns := len(header)
	for _, row := range rows {
		if len(row) > columns {
			columns = len(row)
		}
	}
	if columns == 0 {
		return
	}

	widths := make([]int, columns)
	measure := func(row []string) {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}

	r.ensureBlankLine()
	if len(header) > 0 {
		bold := r.style().Bold(true).Foreground(r.theme.Text)
		r.write(r.consumePrefix() + r.formatRow(header, widths, bold))
		r.ensureNewline()

		parts := make([]string, columns)
		for i, width := range widths {
			parts[i] = strings.Repeat("─", width)
		}
		rule := r.style().Foreground(r.theme.Rule).Render(strings.Join(parts, "  "))
		r.write(r.linePrefix + rule)
		r.ensureNewline()
	}
	for _, row := range rows {
		r.write(r.linePrefix + r.formatRow(row, widths, r.style()))
		r.ensureNewline()
	}
	r.ensureBlankLine()
}

func (r *renderer) collectRow(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if cell.Kind() == extast.KindTableCell {
			cells = append(cells, r.inlineContent(cell))
		}
	}
	return cells
}

func (r *renderer) formatRow(cells []string, widths []int, base lipgloss.Style) string {
	available := r.contentWidth()
	parts := make([]string, len(widths))
	for i, width := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if width > available {
			width = available
		}
		if lipgloss.Width(cell) > width {
			cell = ansi.Truncate(cell, width, "…")
		}
		if padding := width - lipgloss.Width(cell); padding > 0 {
			cell += strings.Repeat(" ", padding)
		}
		parts[i] = cell
	}
	return base.Render(strings.Join(parts, "  "))
}

// blockLines joins the raw source lines of a code block node.
func blockLines(node interface{ Lines() *text.Segments }, source []byte) string {
	var code strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}
	return code.String()
}
