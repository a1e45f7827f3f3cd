package notifier

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMarkdownLen is the byte budget of a rendered message. Telegram caps a
// message at 4096 characters.
const MaxMarkdownLen = 3800

// maxLineLen caps a single line so one oversized value cannot use up the
// whole budget.
const maxLineLen = 400

const fence = "```\n"

// MessageSection is one titled block of lines, e.g. one signal row.
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage lays out a chat notification: a header, the sections in
// a code block, an overflow note, a footer and a timestamp. Sections are
// kept or dropped whole.
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
	// MoreLabel names a section in the overflow note, e.g. "signal(s)".
	MoreLabel string
	// MaxLen overrides MaxMarkdownLen.
	MaxLen int
}

// RenderMarkdown renders Telegram legacy Markdown within the byte budget.
// The code block is always closed.
func (m StructuredMessage) RenderMarkdown() string {
	limit := m.MaxLen
	if limit <= 0 {
		limit = MaxMarkdownLen
	}

	var head string
	if title := strings.TrimSpace(strings.TrimSpace(m.Icon) + " " + strings.TrimSpace(m.Title)); title != "" {
		head = escapeMarkdown(clip(title, maxLineLen)) + "\n\n"
	}
	var tail strings.Builder
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		tail.WriteString(escapeMarkdown(clip(footer, maxLineLen)))
		tail.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		tail.WriteString("time: " + m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}

	blocks := renderBlocks(m.Sections)
	budget := limit - len(head) - tail.Len() - 2*len(fence) - 1
	if len(blocks) > 0 {
		budget -= len(m.moreNote(len(blocks))) + 1
	}
	kept, used := 0, 0
	for _, blk := range blocks {
		need := len(blk)
		if kept > 0 {
			need++
		}
		if used+need > budget {
			break
		}
		used += need
		kept++
	}

	var b strings.Builder
	b.WriteString(head)
	if kept > 0 {
		b.WriteString(fence)
		for i := 0; i < kept; i++ {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(blocks[i])
		}
		b.WriteString(fence)
		b.WriteString("\n")
	}
	if dropped := len(blocks) - kept; dropped > 0 {
		b.WriteString(m.moreNote(dropped))
		b.WriteString("\n")
	}
	b.WriteString(tail.String())
	return strings.TrimSpace(b.String())
}

func (m StructuredMessage) moreNote(n int) string {
	label := strings.TrimSpace(m.MoreLabel)
	if label == "" {
		label = "section(s)"
	}
	return escapeMarkdown(fmt.Sprintf("… %d more %s", n, label))
}

// renderBlocks renders each non-empty section as it appears inside the code
// block, ending in a newline.
func renderBlocks(secs []MessageSection) []string {
	out := make([]string, 0, len(secs))
	for _, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		title := strings.TrimSpace(sec.Title)
		if len(lines) == 0 && title == "" {
			continue
		}
		var b strings.Builder
		if title != "" {
			b.WriteString(sanitize(clip(title, maxLineLen)))
			b.WriteString("\n")
		}
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(sanitize(clip(line, maxLineLen)))
			b.WriteString("\n")
		}
		out = append(out, b.String())
	}
	return out
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// sanitize keeps text from closing the code block early.
func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// escapeMarkdown escapes the characters legacy Markdown treats as entity
// delimiters outside a code block.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// clip shortens s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const ellipsis = "…"
	cut := n - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}
