// Package lcl implements the lexer, parser, and AST for LCL
// (Layout Command Language), the statement language of the layout REPL.
package lcl

import "strings"

// TokenType identifies the kind of lexical token.
type TokenType int

const (
	// Literals and identifiers
	TokenEOF    TokenType = iota
	TokenIdent            // unquoted identifier (property or field name)
	TokenString           // "quoted string"
	TokenInt              // 123
	TokenFloat            // 1.23
	TokenBool             // true / false
	TokenNull             // null

	// Operators
	TokenEQ    // =
	TokenComma // ,
	TokenSemi  // ;

	// Keywords: verbs
	TokenLoad
	TokenTab
	TokenMove
	TokenSet
	TokenWidth
	TokenShow
	TokenChanges
	TokenCommit
	TokenRevert

	// Keywords: clauses
	TokenSection
	TokenColumn
	TokenField
	TokenTo
	TokenAt

	// Special
	TokenMetaCmd // :help, :clear, etc.
	TokenComment // -- comment text
)

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenInt:
		return "integer"
	case TokenFloat:
		return "float"
	case TokenBool:
		return "boolean"
	case TokenNull:
		return "null"
	case TokenEQ:
		return "="
	case TokenComma:
		return ","
	case TokenSemi:
		return ";"
	case TokenMetaCmd:
		return "meta-command"
	case TokenComment:
		return "comment"
	}
	for kw, tt := range keywords {
		if tt == t && t != TokenBool {
			return kw
		}
	}
	return "unknown"
}

// Token represents a single lexical token in an LCL statement.
type Token struct {
	Type    TokenType
	Literal string // raw text of the token
	Pos     int    // byte offset in source
	Line    int    // 1-based line number
	Col     int    // 1-based column number
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"load":    TokenLoad,
	"tab":     TokenTab,
	"move":    TokenMove,
	"set":     TokenSet,
	"width":   TokenWidth,
	"show":    TokenShow,
	"changes": TokenChanges,
	"commit":  TokenCommit,
	"revert":  TokenRevert,
	"section": TokenSection,
	"column":  TokenColumn,
	"field":   TokenField,
	"to":      TokenTo,
	"at":      TokenAt,
	"true":    TokenBool,
	"false":   TokenBool,
	"null":    TokenNull,
}

// Verbs lists the statement keywords in the order help shows them.
var Verbs = []string{"load", "tab", "move", "set", "width", "show", "changes", "commit", "revert"}

// LookupKeyword returns the keyword token type for an identifier, or
// TokenIdent if the identifier is not a keyword. Lookup is case-insensitive.
func LookupKeyword(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return TokenIdent
}

// IsVerb returns true if the token type starts a statement.
func (t TokenType) IsVerb() bool {
	switch t {
	case TokenLoad, TokenTab, TokenMove, TokenSet, TokenWidth,
		TokenShow, TokenChanges, TokenCommit, TokenRevert:
		return true
	}
	return false
}

// IsWord returns true for identifiers and keywords, which can all name a
// property.
func (t TokenType) IsWord() bool {
	return t == TokenIdent || (t >= TokenLoad && t <= TokenAt)
}
