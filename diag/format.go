package diag

import (
	"strconv"
	"strings"
)

// Formatter renders Diagnostics against the original source text, producing
// the three-line snippet (previous/offending/next line) with a caret
// underline that a terminal-facing CLI would print.
type Formatter struct {
	lines []string
}

// NewFormatter splits source into lines for snippet rendering. Line 1 is
// lines[0].
func NewFormatter(source string) *Formatter {
	return &Formatter{lines: strings.Split(source, "\n")}
}

func (f *Formatter) line(n int) (string, bool) {
	if n < 1 || n > len(f.lines) {
		return "", false
	}
	return f.lines[n-1], true
}

// Format renders a single Diagnostic as a multi-line report.
func (f *Formatter) Format(d Diagnostic) string {
	var b strings.Builder

	b.WriteString(d.Severity.glyph())
	b.WriteString(" ")
	b.WriteString(d.Message)
	if d.Code != "" {
		b.WriteString(" [")
		b.WriteString(d.Code)
		b.WriteString("]")
	}
	b.WriteString("\n")

	b.WriteString("  --> line ")
	b.WriteString(strconv.Itoa(d.Span.Start.Line))
	b.WriteString(", column ")
	b.WriteString(strconv.Itoa(d.Span.Start.Column))
	b.WriteString("\n")

	if prev, ok := f.line(d.Span.Start.Line - 1); ok {
		writeSourceLine(&b, d.Span.Start.Line-1, prev)
	}
	if cur, ok := f.line(d.Span.Start.Line); ok {
		writeSourceLine(&b, d.Span.Start.Line, cur)
		if d.Span.Start.Line == d.Span.End.Line {
			b.WriteString(caretLine(d.Span.Start.Column, d.Span.End.Column))
		}
	}
	if next, ok := f.line(d.Span.Start.Line + 1); ok {
		writeSourceLine(&b, d.Span.Start.Line+1, next)
	}

	if d.Hint != "" {
		b.WriteString("  hint: ")
		b.WriteString(d.Hint)
		b.WriteString("\n")
	}

	for _, r := range d.Related {
		b.WriteString("  related: ")
		b.WriteString(r.Message)
		b.WriteString(" (")
		b.WriteString(r.Span.String())
		b.WriteString(")\n")
	}

	return b.String()
}

// FormatAll renders every diagnostic in order, separated by blank lines.
func (f *Formatter) FormatAll(ds []Diagnostic) string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		parts = append(parts, f.Format(d))
	}
	return strings.Join(parts, "\n")
}

func writeSourceLine(b *strings.Builder, num int, text string) {
	b.WriteString(strconv.Itoa(num))
	b.WriteString(" | ")
	b.WriteString(text)
	b.WriteString("\n")
}

func caretLine(startCol, endCol int) string {
	width := endCol - startCol
	if width < 1 {
		width = 1
	}
	pad := strings.Repeat(" ", max(startCol-1, 0))
	carets := strings.Repeat("^", width)
	return "    | " + pad + carets + "\n"
}
