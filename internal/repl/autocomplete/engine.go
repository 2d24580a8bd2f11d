// Package autocomplete provides context-aware completions for LCL.
package autocomplete

import (
	"sort"
	"strconv"
	"strings"

	"github.com/matthewbaird/formlayout/internal/repl/lcl"
	"github.com/matthewbaird/formlayout/internal/repl/meta"
	"github.com/matthewbaird/formlayout/internal/types"
)

// CompletionItem is a single autocomplete suggestion.
type CompletionItem struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"` // "verb", "command", "keyword", "doctype", "field", "property", "value"
	Detail     string `json:"detail,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
}

// Context is what the completer knows about the session.
type Context struct {
	Doctypes []string
	Fields   types.FieldList // working list; nil when nothing is loaded
}

// Engine completes LCL statements. It holds no state.
type Engine struct{}

// New creates an autocomplete engine.
func New() *Engine {
	return &Engine{}
}

// knownProps are suggested after set in addition to the properties the
// loaded fields carry.
var knownProps = []string{
	types.PropLabel, types.PropHidden, types.PropRequired, types.PropReadOnly,
	types.PropDefault, types.PropCollapsible, types.PropWidth, "bold", "description",
}

var literals = []string{"true", "false", "null"}

// grammar lists the statement shapes. "<...>" is a value slot and a
// leading "?" marks an optional keyword followed by its value.
var grammar = [][]string{
	{"load", "<doctype>"},
	{"tab", "<int>"},
	{"move", "section", "<int>", "to", "<int>", "?tab", "<int>"},
	{"move", "column", "<int>", "to", "<int>", "section", "<int>", "?tab", "<int>"},
	{"move", "field", "<field>", "to", "column", "<int>", "section", "<int>", "?tab", "<int>", "?at", "<int>"},
	{"width", "column", "<int>", "section", "<int>", "?tab", "<int>", "=", "<int>"},
}

// Complete returns suggestions for the text up to cursor.
func (e *Engine) Complete(text string, cursor int, c Context) []CompletionItem {
	if cursor > len(text) {
		cursor = len(text)
	}
	if cursor < 0 {
		cursor = 0
	}
	prefix := text[:cursor]

	tokens, _ := lcl.NewLexer(prefix).Tokenize()
	if len(tokens) > 0 && tokens[len(tokens)-1].Type == lcl.TokenEOF {
		tokens = tokens[:len(tokens)-1]
	}
	tokens = currentStatement(tokens, strings.Count(prefix, "\n")+1)

	partial := ""
	if len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		switch {
		case last.Type == lcl.TokenString && isUnterminatedString(prefix, last):
			partial = strings.ToLower(last.Literal)
			tokens = tokens[:len(tokens)-1]
		case last.Type == lcl.TokenString:
			// A closed string is complete.
		case atEnd(prefix, last) && (last.Type.IsWord() || last.Type == lcl.TokenMetaCmd ||
			last.Type == lcl.TokenBool || last.Type == lcl.TokenNull):
			partial = strings.ToLower(last.Literal)
			tokens = tokens[:len(tokens)-1]
		case atEnd(prefix, last) && (last.Type == lcl.TokenInt || last.Type == lcl.TokenFloat):
			// Still typing a number.
			return nil
		}
	}

	if len(tokens) == 0 {
		items := filterItems(lcl.Verbs, partial, "verb")
		return append(items, completeMetaCmds(partial)...)
	}
	switch tokens[0].Type {
	case lcl.TokenSet:
		return completeSet(tokens[1:], c, partial)
	case lcl.TokenMetaCmd:
		return nil
	}
	return completeGrammar(tokens, c, partial)
}

// currentStatement keeps the tokens after the last semicolon that sit on
// the cursor's line.
func currentStatement(tokens []lcl.Token, line int) []lcl.Token {
	start := 0
	for i, t := range tokens {
		if t.Type == lcl.TokenSemi || t.Line < line {
			start = i + 1
		}
	}
	return tokens[start:]
}

func atEnd(prefix string, tok lcl.Token) bool {
	return len(prefix) <= tok.Pos+len(tok.Literal)
}

func completeGrammar(tokens []lcl.Token, c Context, partial string) []CompletionItem {
	seen := map[string]bool{}
	var items []CompletionItem
	for _, shape := range grammar {
		slot, ok := match(shape, tokens)
		if !ok {
			continue
		}
		for _, item := range next(shape, slot, c, partial) {
			key := item.Kind + "\x00" + item.Label
			if !seen[key] {
				seen[key] = true
				items = append(items, item)
			}
		}
	}
	return items
}

// match walks tokens through shape and returns the index of the next slot.
func match(shape []string, tokens []lcl.Token) (int, bool) {
	slot := 0
	for _, tok := range tokens {
		for {
			if slot >= len(shape) {
				return 0, false
			}
			s := shape[slot]
			if kw, optional := strings.CutPrefix(s, "?"); optional {
				if strings.EqualFold(tok.Literal, kw) && tok.Type != lcl.TokenString {
					slot++
					break
				}
				slot += 2
				continue
			}
			if !fits(s, tok) {
				return 0, false
			}
			slot++
			break
		}
	}
	return slot, true
}

func fits(slot string, tok lcl.Token) bool {
	switch slot {
	case "<int>":
		return tok.Type == lcl.TokenInt
	case "<doctype>", "<field>":
		return tok.Type == lcl.TokenString || tok.Type == lcl.TokenIdent
	case "=":
		return tok.Type == lcl.TokenEQ
	}
	return tok.Type != lcl.TokenString && strings.EqualFold(tok.Literal, slot)
}

// next lists what may follow at slot: every optional keyword up to the
// first required slot, then that slot.
func next(shape []string, slot int, c Context, partial string) []CompletionItem {
	var items []CompletionItem
	for slot < len(shape) {
		s := shape[slot]
		if kw, optional := strings.CutPrefix(s, "?"); optional {
			items = append(items, filterItems([]string{kw}, partial, "keyword")...)
			slot += 2
			continue
		}
		switch s {
		case "<int>":
		case "<doctype>":
			items = append(items, completeDoctypes(c.Doctypes, partial)...)
		case "<field>":
			items = append(items, completeFields(c.Fields, partial, false)...)
		default:
			items = append(items, filterItems([]string{s}, partial, "keyword")...)
		}
		return items
	}
	return items
}

// completeSet handles set "<field>" <prop> = <value> [, ...].
func completeSet(tokens []lcl.Token, c Context, partial string) []CompletionItem {
	if len(tokens) == 0 {
		return completeFields(c.Fields, partial, true)
	}
	if len(tokens) == 1 {
		return completeProps(c, fieldName(tokens[0]), partial)
	}
	last := tokens[len(tokens)-1]
	switch last.Type {
	case lcl.TokenComma:
		return completeProps(c, fieldName(tokens[0]), partial)
	case lcl.TokenEQ:
		return filterItems(literals, partial, "value")
	case lcl.TokenString, lcl.TokenInt, lcl.TokenFloat, lcl.TokenBool, lcl.TokenNull:
		if len(tokens) >= 2 && tokens[len(tokens)-2].Type == lcl.TokenEQ {
			return filterItems([]string{","}, partial, "keyword")
		}
	}
	if last.Type.IsWord() {
		return filterItems([]string{"="}, partial, "keyword")
	}
	return nil
}

func fieldName(tok lcl.Token) string { return tok.Literal }

// ── Completion providers ────────────────────────────────────────────────────

func completeMetaCmds(partial string) []CompletionItem {
	cmds := meta.Commands()
	for i, c := range cmds {
		cmds[i] = ":" + c
	}
	return filterItems(cmds, partial, "command")
}

func completeDoctypes(names []string, partial string) []CompletionItem {
	var items []CompletionItem
	for _, name := range names {
		if matches(name, partial) {
			items = append(items, CompletionItem{
				Label:      name,
				Kind:       "doctype",
				InsertText: strconv.Quote(name),
			})
		}
	}
	return items
}

// completeFields suggests fieldnames. Markers are included only when
// withMarkers is set, since only data fields can be moved by name.
func completeFields(list types.FieldList, partial string, withMarkers bool) []CompletionItem {
	var items []CompletionItem
	for _, f := range list {
		if f.IsMarker() && !withMarkers {
			continue
		}
		if matches(f.Name, partial) {
			items = append(items, CompletionItem{
				Label:      f.Name,
				Kind:       "field",
				Detail:     string(f.Type) + " " + strconv.Quote(f.Label()),
				InsertText: strconv.Quote(f.Name),
			})
		}
	}
	return items
}

// completeProps suggests the well-known properties plus those the named
// field already carries. Protected properties are never offered.
func completeProps(c Context, field, partial string) []CompletionItem {
	set := map[string]bool{}
	for _, p := range knownProps {
		set[p] = true
	}
	if f, ok := c.Fields.Find(field); ok {
		for p := range f.Props {
			set[p] = true
		}
	}
	delete(set, types.PropFieldname)
	delete(set, types.PropFieldtype)
	delete(set, types.PropPosition)

	props := make([]string, 0, len(set))
	for p := range set {
		props = append(props, p)
	}
	sort.Strings(props)
	return filterItems(props, partial, "property")
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func matches(candidate, partial string) bool {
	return partial == "" || strings.HasPrefix(strings.ToLower(candidate), partial)
}

func filterItems(candidates []string, partial, kind string) []CompletionItem {
	var items []CompletionItem
	for _, c := range candidates {
		if matches(c, partial) {
			items = append(items, CompletionItem{
				Label: c,
				Kind:  kind,
			})
		}
	}
	return items
}

// isUnterminatedString checks whether a string token is missing its
// closing quote, meaning the user is still typing inside it.
func isUnterminatedString(source string, tok lcl.Token) bool {
	if tok.Pos >= len(source) {
		return true
	}
	quote := source[tok.Pos]
	rest := source[tok.Pos+1:]
	return strings.LastIndexByte(rest, quote) < 0
}
