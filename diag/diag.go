// Package diag defines source spans and severity-tagged diagnostics shared
// across the lexer, parser, and semantic validators.
package diag

import "fmt"

// Position is a 1-based line/column with a 0-based byte offset into the
// source text, matching what the lexer stamps on every token.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span is a half-open source range: Start is inclusive, End is exclusive.
type Span struct {
	Start Position
	End   Position
}

// Join returns the smallest span covering both a and b.
func Join(a, b Span) Span {
	start := a.Start
	if b.Start.Offset < start.Offset {
		start = b.Start
	}
	end := a.End
	if b.End.Offset > end.Offset {
		end = b.End
	}
	return Span{Start: start, End: end}
}

func (s Span) String() string {
	return fmt.Sprintf("line %d, column %d", s.Start.Line, s.Start.Column)
}

// Severity classifies a Diagnostic's importance.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// glyph returns the single-character marker the Formatter prefixes a
// rendered diagnostic with.
func (s Severity) glyph() string {
	switch s {
	case Error:
		return "✗"
	case Warning:
		return "⚠"
	case Info:
		return "ℹ"
	case Hint:
		return "→"
	default:
		return "?"
	}
}

// Related attaches a secondary note to a Diagnostic (e.g. "first defined
// here").
type Related struct {
	Message string
	Span    Span
}

// Diagnostic is a single severity-tagged message with a source span and
// optional code, hint, and related notes.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     Span
	Code     string
	Hint     string
	Related  []Related
}

// Builder appends diagnostics in order and offers fluent hint/related-note
// attachment to the most recently appended entry.
type Builder struct {
	diagnostics []Diagnostic
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a new diagnostic and returns the Builder so a Hint/Related
// call can chain immediately after.
func (b *Builder) Add(severity Severity, message string, span Span) *Builder {
	b.diagnostics = append(b.diagnostics, Diagnostic{
		Severity: severity,
		Message:  message,
		Span:     span,
	})
	return b
}

// AddCode is Add plus a stable diagnostic code (e.g. "VER003").
func (b *Builder) AddCode(severity Severity, code, message string, span Span) *Builder {
	b.Add(severity, message, span)
	b.diagnostics[len(b.diagnostics)-1].Code = code
	return b
}

// Hint attaches a hint to the most recently added diagnostic. No-op if
// nothing has been added yet.
func (b *Builder) Hint(hint string) *Builder {
	if len(b.diagnostics) == 0 {
		return b
	}
	b.diagnostics[len(b.diagnostics)-1].Hint = hint
	return b
}

// RelatedNote attaches a related note to the most recently added diagnostic.
func (b *Builder) RelatedNote(message string, span Span) *Builder {
	if len(b.diagnostics) == 0 {
		return b
	}
	d := &b.diagnostics[len(b.diagnostics)-1]
	d.Related = append(d.Related, Related{Message: message, Span: span})
	return b
}

// Diagnostics returns all appended diagnostics in insertion order.
func (b *Builder) Diagnostics() []Diagnostic {
	return b.diagnostics
}

// HasErrors reports whether any appended diagnostic is Severity Error.
func (b *Builder) HasErrors() bool {
	for _, d := range b.diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Merge appends another Builder's diagnostics onto this one, preserving
// order.
func (b *Builder) Merge(other *Builder) {
	if other == nil {
		return
	}
	b.diagnostics = append(b.diagnostics, other.diagnostics...)
}

// Reset clears all diagnostics, matching the compiler context's reset
// lifecycle (spec.md §3.8).
func (b *Builder) Reset() {
	b.diagnostics = nil
}
