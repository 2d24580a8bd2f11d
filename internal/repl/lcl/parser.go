package lcl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matthewbaird/formlayout/internal/suggest"
)

// Parser implements a recursive descent parser for LCL. Statements end at
// a semicolon or a line break; optional clauses are only taken from the
// statement's own line.
type Parser struct {
	tokens []Token
	pos    int
	prev   Token
	errors []*ParseError
}

// NewParser creates a parser from a token slice (typically from Lexer.Tokenize).
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the token stream into a list of statements. A statement
// with an error is dropped and parsing resumes at the next statement.
func (p *Parser) Parse() ([]Statement, []*ParseError) {
	var stmts []Statement
	for {
		for p.check(TokenSemi) {
			p.advance()
		}
		if p.atEnd() {
			break
		}
		nErrs := len(p.errors)
		stmt := p.parseStatement()
		if len(p.errors) > nErrs {
			p.synchronize()
			continue
		}
		if !p.endStatement() {
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts, p.errors
}

// Parse lexes and parses input. Lexer errors come first in the result.
func Parse(input string) ([]Statement, []*ParseError) {
	tokens, lexErrs := NewLexer(input).Tokenize()
	stmts, errs := NewParser(tokens).Parse()
	return stmts, append(lexErrs, errs...)
}

// ── Token navigation ────────────────────────────────────────────────────────

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
		p.prev = tok
	}
	return tok
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

// onLine reports whether the next token has type t and sits on the same
// line as the last consumed token.
func (p *Parser) onLine(t TokenType) bool {
	tok := p.peek()
	return tok.Type == t && tok.Line == p.prev.Line
}

func (p *Parser) expect(t TokenType) (Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	tok := p.peek()
	p.addError(tok, fmt.Sprintf("expected %s, got %s", t, describe(tok)))
	return tok, false
}

func (p *Parser) addError(tok Token, msg string) {
	p.errors = append(p.errors, newParseError(tok, msg))
}

// endStatement consumes an optional semicolon and reports an error if
// more tokens follow on the same line.
func (p *Parser) endStatement() bool {
	if p.check(TokenSemi) {
		p.advance()
		return true
	}
	tok := p.peek()
	if tok.Type == TokenEOF || tok.Line != p.prev.Line {
		return true
	}
	p.addError(tok, fmt.Sprintf("unexpected %s after statement", describe(tok)))
	return false
}

// synchronize skips to the start of the next statement: past a semicolon,
// or to the first token on a later line.
func (p *Parser) synchronize() {
	line := p.prev.Line
	for !p.atEnd() {
		tok := p.peek()
		if tok.Type == TokenSemi {
			p.advance()
			return
		}
		if tok.Line > line {
			return
		}
		p.advance()
	}
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdent, TokenInt, TokenFloat:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	case TokenString:
		return fmt.Sprintf("string %q", tok.Literal)
	}
	return fmt.Sprintf("%q", tok.Literal)
}

// ── Statements ──────────────────────────────────────────────────────────────

func (p *Parser) parseStatement() Statement {
	tok := p.peek()
	switch tok.Type {
	case TokenMetaCmd:
		return p.parseMetaCmd()
	case TokenLoad:
		return p.parseLoad()
	case TokenTab:
		p.advance()
		n, _ := p.parseInt()
		return &TabStmt{TokenPos: tok.Pos, Index: n}
	case TokenMove:
		return p.parseMove()
	case TokenSet:
		return p.parseSet()
	case TokenWidth:
		return p.parseWidth()
	case TokenShow, TokenChanges, TokenCommit, TokenRevert:
		p.advance()
		return &ActionStmt{TokenPos: tok.Pos, Action: Action(strings.ToLower(tok.Literal))}
	case TokenIdent:
		p.advance()
		err := newParseError(tok, fmt.Sprintf("unknown command %q", tok.Literal))
		err.Suggestion = suggest.From(tok.Literal, Verbs, 2)
		p.errors = append(p.errors, err)
		return nil
	}
	p.advance()
	p.addError(tok, fmt.Sprintf("unexpected %s at start of statement", describe(tok)))
	return nil
}

func (p *Parser) parseMetaCmd() Statement {
	tok := p.advance()
	stmt := &MetaCmdStmt{TokenPos: tok.Pos, Command: strings.TrimPrefix(tok.Literal, ":")}
	for !p.atEnd() && !p.check(TokenSemi) && p.peek().Line == tok.Line {
		stmt.Args = append(stmt.Args, p.advance().Literal)
	}
	return stmt
}

func (p *Parser) parseLoad() Statement {
	tok := p.advance()
	name, ok := p.parseName("doctype")
	if !ok {
		return nil
	}
	return &LoadStmt{TokenPos: tok.Pos, Doctype: name}
}

func (p *Parser) parseMove() Statement {
	tok := p.advance()
	switch p.peek().Type {
	case TokenSection:
		p.advance()
		stmt := &MoveSectionStmt{TokenPos: tok.Pos}
		stmt.From, _ = p.parseInt()
		p.expect(TokenTo)
		stmt.To, _ = p.parseInt()
		stmt.Tab = p.parseOptional(TokenTab)
		return stmt
	case TokenColumn:
		p.advance()
		stmt := &MoveColumnStmt{TokenPos: tok.Pos}
		stmt.From, _ = p.parseInt()
		p.expect(TokenTo)
		stmt.To, _ = p.parseInt()
		p.expect(TokenSection)
		stmt.Section, _ = p.parseInt()
		stmt.Tab = p.parseOptional(TokenTab)
		return stmt
	case TokenField:
		p.advance()
		stmt := &MoveFieldStmt{TokenPos: tok.Pos}
		name, ok := p.parseName("fieldname")
		if !ok {
			return nil
		}
		stmt.Field = name
		p.expect(TokenTo)
		p.expect(TokenColumn)
		stmt.Column, _ = p.parseInt()
		p.expect(TokenSection)
		stmt.Section, _ = p.parseInt()
		stmt.Tab = p.parseOptional(TokenTab)
		stmt.At = p.parseOptional(TokenAt)
		return stmt
	}
	next := p.peek()
	p.addError(next, fmt.Sprintf("expected section, column or field after move, got %s", describe(next)))
	return nil
}

func (p *Parser) parseSet() Statement {
	tok := p.advance()
	name, ok := p.parseName("fieldname")
	if !ok {
		return nil
	}
	stmt := &SetStmt{TokenPos: tok.Pos, Field: name}
	for {
		propTok := p.peek()
		if !propTok.Type.IsWord() {
			p.addError(propTok, fmt.Sprintf("expected property name, got %s", describe(propTok)))
			return nil
		}
		p.advance()
		if _, ok := p.expect(TokenEQ); !ok {
			return nil
		}
		lit, ok := p.parseLiteral()
		if !ok {
			return nil
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Prop: propTok.Literal, Value: lit})
		if !p.check(TokenComma) {
			return stmt
		}
		p.advance()
	}
}

func (p *Parser) parseWidth() Statement {
	tok := p.advance()
	stmt := &WidthStmt{TokenPos: tok.Pos}
	p.expect(TokenColumn)
	stmt.Column, _ = p.parseInt()
	p.expect(TokenSection)
	stmt.Section, _ = p.parseInt()
	stmt.Tab = p.parseOptional(TokenTab)
	p.expect(TokenEQ)
	stmt.Width, _ = p.parseInt()
	return stmt
}

// parseOptional parses "<kw> <int>" when kw follows on the same line.
func (p *Parser) parseOptional(kw TokenType) *int {
	if !p.onLine(kw) {
		return nil
	}
	p.advance()
	n, ok := p.parseInt()
	if !ok {
		return nil
	}
	return &n
}

// ── Values ──────────────────────────────────────────────────────────────────

func (p *Parser) parseInt() (int, bool) {
	tok, ok := p.expect(TokenInt)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil {
		p.addError(tok, fmt.Sprintf("invalid integer %q", tok.Literal))
		return 0, false
	}
	return n, true
}

// parseName accepts a quoted string or a bare identifier.
func (p *Parser) parseName(what string) (string, bool) {
	tok := p.peek()
	if tok.Type == TokenString || tok.Type == TokenIdent {
		p.advance()
		if tok.Literal == "" {
			p.addError(tok, what+" cannot be empty")
			return "", false
		}
		return tok.Literal, true
	}
	p.addError(tok, fmt.Sprintf("expected %s, got %s", what, describe(tok)))
	return "", false
}

func (p *Parser) parseLiteral() (Literal, bool) {
	tok := p.peek()
	switch tok.Type {
	case TokenString:
		p.advance()
		return Literal{Kind: LitString, Raw: tok.Literal}, true
	case TokenInt:
		p.advance()
		n, err := strconv.Atoi(tok.Literal)
		if err != nil {
			p.addError(tok, fmt.Sprintf("invalid integer %q", tok.Literal))
			return Literal{}, false
		}
		return Literal{Kind: LitInt, Raw: tok.Literal, Int: n}, true
	case TokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addError(tok, fmt.Sprintf("invalid number %q", tok.Literal))
			return Literal{}, false
		}
		return Literal{Kind: LitFloat, Raw: tok.Literal, Float: f}, true
	case TokenBool:
		p.advance()
		return Literal{Kind: LitBool, Raw: tok.Literal, Bool: strings.EqualFold(tok.Literal, "true")}, true
	case TokenNull:
		p.advance()
		return Literal{Kind: LitNull, Raw: tok.Literal}, true
	}
	p.addError(tok, fmt.Sprintf("expected value, got %s", describe(tok)))
	return Literal{}, false
}
