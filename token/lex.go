package token

import (
	"github.com/chazu/wardlang/diag"
)

// Lexer is a single-pass character cursor over source text, tracking
// (line, column, byte offset) the way spec.md §4.1 specifies.
type Lexer struct {
	src    string
	pos    int
	line   int
	column int
}

// New returns a Lexer positioned at the start of source.
func New(source string) *Lexer {
	return &Lexer{src: source, pos: 0, line: 1, column: 1}
}

func (l *Lexer) position() diag.Position {
	return diag.Position{Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == ';':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// Next scans and returns the next Token, advancing the cursor past it. At
// end of input it returns an EOF token whose span is a zero-width point.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()

	start := l.position()
	if l.atEnd() {
		return Token{Kind: EOF, Span: diag.Span{Start: start, End: start}}
	}

	c := l.peek()
	switch {
	case c == '(':
		return l.simple(LParen, start)
	case c == ')':
		return l.simple(RParen, start)
	case c == '[':
		return l.simple(LBracket, start)
	case c == ']':
		return l.simple(RBracket, start)
	case c == '{':
		return l.simple(LBrace, start)
	case c == '}':
		return l.simple(RBrace, start)
	case c == ',':
		return l.simple(Comma, start)
	case c == '|':
		return l.simple(Pipe, start)
	case c == '?':
		return l.simple(Question, start)
	case c == '.':
		return l.simple(Dot, start)
	case c == '-' && l.peekAt(1) == '>':
		l.advance()
		l.advance()
		return Token{Kind: Arrow, Value: "->", Span: diag.Span{Start: start, End: l.position()}}
	case c == '+' || c == '*' || c == '/' || c == '%' || c == '=':
		l.advance()
		return Token{Kind: Identifier, Value: string(c), Span: diag.Span{Start: start, End: l.position()}}
	case c == '!' && l.peekAt(1) == '=':
		l.advance()
		l.advance()
		return Token{Kind: Identifier, Value: "!=", Span: diag.Span{Start: start, End: l.position()}}
	case c == '<' || c == '>':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return Token{Kind: Identifier, Value: string(c) + "=", Span: diag.Span{Start: start, End: l.position()}}
		}
		return Token{Kind: Identifier, Value: string(c), Span: diag.Span{Start: start, End: l.position()}}
	case c == ':':
		return l.lexColon(start)
	case c == '"':
		return l.lexString(start)
	case c == '-' && isDigit(l.peekAt(1)):
		return l.lexNumber(start)
	case isDigit(c):
		return l.lexNumber(start)
	case isIdentStart(c):
		return l.lexIdentifier(start)
	default:
		l.advance()
		return Token{Kind: Invalid, Value: string(c), Span: diag.Span{Start: start, End: l.position()}}
	}
}

func (l *Lexer) simple(kind Kind, start diag.Position) Token {
	c := l.advance()
	return Token{Kind: kind, Value: string(c), Span: diag.Span{Start: start, End: l.position()}}
}

// lexColon handles the two colon-prefixed forms: a version marker when
// followed by `v<digit>`, otherwise a keyword marker.
func (l *Lexer) lexColon(start diag.Position) Token {
	l.advance() // consume ':'

	if l.peek() == 'v' && isDigit(l.peekAt(1)) {
		l.advance() // consume 'v'
		for !l.atEnd() && (isDigit(l.peek()) || l.peek() == '.' || l.peek() == '-' || l.peek() == '+' || isAlnum(l.peek())) {
			l.advance()
		}
		val := l.src[start.Offset:l.pos]
		return Token{Kind: VersionMarker, Value: val, Span: diag.Span{Start: start, End: l.position()}}
	}

	for !l.atEnd() && isIdentChar(l.peek()) {
		l.advance()
	}
	val := l.src[start.Offset:l.pos]
	return Token{Kind: KeywordMarker, Value: val, Span: diag.Span{Start: start, End: l.position()}}
}

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// lexString consumes a quoted string literal. Escapes are consumed as two
// literal characters without interpretation; the returned Value retains
// the surrounding quotes.
func (l *Lexer) lexString(start diag.Position) Token {
	l.advance() // opening quote
	for !l.atEnd() {
		c := l.peek()
		if c == '\\' {
			l.advance()
			if !l.atEnd() {
				l.advance()
			}
			continue
		}
		if c == '"' {
			l.advance()
			break
		}
		l.advance()
	}
	val := l.src[start.Offset:l.pos]
	return Token{Kind: String, Value: val, Span: diag.Span{Start: start, End: l.position()}}
}

// lexNumber consumes an optional leading '-', one or more digits, and an
// optional '.'-led fractional part.
func (l *Lexer) lexNumber(start diag.Position) Token {
	if l.peek() == '-' {
		l.advance()
	}
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for !l.atEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	val := l.src[start.Offset:l.pos]
	return Token{Kind: Number, Value: val, Span: diag.Span{Start: start, End: l.position()}}
}

func (l *Lexer) lexIdentifier(start diag.Position) Token {
	for !l.atEnd() && isIdentChar(l.peek()) {
		l.advance()
	}
	val := l.src[start.Offset:l.pos]
	span := diag.Span{Start: start, End: l.position()}

	if val == "true" || val == "false" {
		return Token{Kind: Boolean, Value: val, Span: span}
	}
	if kind, ok := keywords[val]; ok {
		return Token{Kind: kind, Value: val, Span: span}
	}
	return Token{Kind: Identifier, Value: val, Span: span}
}

// Tokenize is the convenience wrapper from spec.md §6: it drops INVALID
// tokens. A full pipeline that wants to surface them as diagnostics uses
// TokenizeRaw instead (see parser.Parse, which does).
func Tokenize(source string) []Token {
	l := New(source)
	var out []Token
	for {
		t := l.Next()
		if t.Kind == Invalid {
			continue
		}
		out = append(out, t)
		if t.Kind == EOF {
			break
		}
	}
	return out
}

// TokenizeRaw returns every token including INVALID ones, for callers (the
// parser, diagnostics-producing pipelines) that must surface lex errors.
func TokenizeRaw(source string) []Token {
	l := New(source)
	var out []Token
	for {
		t := l.Next()
		out = append(out, t)
		if t.Kind == EOF {
			break
		}
	}
	return out
}
