package lcl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer splits LCL source into tokens. Every token records where it
// starts so the parser can tell which line a clause belongs to.
type Lexer struct {
	src   string
	off   int
	line  int
	col   int
	start Token // position of the token being scanned
	errs  []*ParseError
}

// NewLexer creates a lexer for src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Tokenize scans the whole input. The result always ends with TokenEOF and
// never contains comments.
func (l *Lexer) Tokenize() ([]Token, []*ParseError) {
	var out []Token
	for {
		tok := l.scan()
		switch tok.Type {
		case TokenComment:
			continue
		case TokenEOF:
			return append(out, tok), l.errs
		}
		out = append(out, tok)
	}
}

var punctuation = map[rune]TokenType{
	'=': TokenEQ,
	',': TokenComma,
	';': TokenSemi,
}

var escapes = map[rune]rune{
	'n':  '\n',
	't':  '\t',
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
}

func (l *Lexer) scan() Token {
	l.skip(unicode.IsSpace)
	l.mark()
	if l.done() {
		return l.emit(TokenEOF, "")
	}

	r := l.cur()
	switch {
	case r == '-' && l.ahead(1) == '-':
		l.skip(func(r rune) bool { return r != '\n' })
		return l.emit(TokenComment, l.lexeme())
	case r == ':':
		l.step()
		l.skip(isWordRune)
		return l.emit(TokenMetaCmd, l.lexeme())
	case r == '"' || r == '\'':
		return l.quoted(l.step())
	case isDigit(r), r == '-' && isDigit(rune(l.ahead(1))):
		return l.number()
	case r == '_' || unicode.IsLetter(r):
		l.skip(isWordRune)
		word := l.lexeme()
		return l.emit(LookupKeyword(word), word)
	}

	l.step()
	if t, ok := punctuation[r]; ok {
		return l.emit(t, string(r))
	}
	l.fail("unexpected character %q", r)
	return l.emit(TokenIdent, string(r))
}

// quoted reads a string closed by the quote that opened it.
func (l *Lexer) quoted(quote rune) Token {
	var b strings.Builder
	for !l.done() {
		r := l.step()
		switch {
		case r == quote:
			return l.emit(TokenString, b.String())
		case r == '\\' && !l.done():
			esc := l.step()
			if v, ok := escapes[esc]; ok {
				b.WriteRune(v)
			} else {
				b.WriteRune('\\')
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
	l.fail("unterminated string")
	return l.emit(TokenString, b.String())
}

// number reads an optionally negative integer or decimal.
func (l *Lexer) number() Token {
	if l.cur() == '-' {
		l.step()
	}
	l.skip(isDigit)
	if l.cur() == '.' && isDigit(rune(l.ahead(1))) {
		l.step()
		l.skip(isDigit)
		return l.emit(TokenFloat, l.lexeme())
	}
	return l.emit(TokenInt, l.lexeme())
}

func (l *Lexer) done() bool { return l.off >= len(l.src) }

func (l *Lexer) cur() rune {
	if l.done() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return r
}

// ahead returns the byte n positions past the cursor, or 0.
func (l *Lexer) ahead(n int) byte {
	if l.off+n >= len(l.src) {
		return 0
	}
	return l.src[l.off+n]
}

func (l *Lexer) step() rune {
	if l.done() {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// skip consumes runes while keep reports true.
func (l *Lexer) skip(keep func(rune) bool) {
	for !l.done() && keep(l.cur()) {
		l.step()
	}
}

func (l *Lexer) mark() {
	l.start = Token{Pos: l.off, Line: l.line, Col: l.col}
}

func (l *Lexer) lexeme() string { return l.src[l.start.Pos:l.off] }

func (l *Lexer) emit(t TokenType, lit string) Token {
	tok := l.start
	tok.Type, tok.Literal = t, lit
	return tok
}

func (l *Lexer) fail(format string, args ...any) {
	err := newParseError(l.start, fmt.Sprintf(format, args...))
	l.errs = append(l.errs, err)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
