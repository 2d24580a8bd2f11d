package lcl

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeType() string
	Pos() int // byte offset in source
}

// Statement is the interface for top-level LCL statements.
type Statement interface {
	Node
	stmtNode()
}

// LoadStmt represents: load "<doctype>"
type LoadStmt struct {
	TokenPos int
	Doctype  string
}

func (s *LoadStmt) nodeType() string { return "LoadStmt" }
func (s *LoadStmt) Pos() int         { return s.TokenPos }
func (s *LoadStmt) stmtNode()        {}

// TabStmt represents: tab <n>
type TabStmt struct {
	TokenPos int
	Index    int
}

func (s *TabStmt) nodeType() string { return "TabStmt" }
func (s *TabStmt) Pos() int         { return s.TokenPos }
func (s *TabStmt) stmtNode()        {}

// MoveSectionStmt represents: move section <from> to <to> [tab <t>]
// A nil Tab means the current tab.
type MoveSectionStmt struct {
	TokenPos int
	From     int
	To       int
	Tab      *int
}

func (s *MoveSectionStmt) nodeType() string { return "MoveSectionStmt" }
func (s *MoveSectionStmt) Pos() int         { return s.TokenPos }
func (s *MoveSectionStmt) stmtNode()        {}

// MoveColumnStmt represents: move column <from> to <to> section <s> [tab <t>]
type MoveColumnStmt struct {
	TokenPos int
	From     int
	To       int
	Section  int
	Tab      *int
}

func (s *MoveColumnStmt) nodeType() string { return "MoveColumnStmt" }
func (s *MoveColumnStmt) Pos() int         { return s.TokenPos }
func (s *MoveColumnStmt) stmtNode()        {}

// MoveFieldStmt represents:
// move field "<name>" to column <c> section <s> [tab <t>] [at <i>]
// A nil At appends to the end of the target column.
type MoveFieldStmt struct {
	TokenPos int
	Field    string
	Column   int
	Section  int
	Tab      *int
	At       *int
}

func (s *MoveFieldStmt) nodeType() string { return "MoveFieldStmt" }
func (s *MoveFieldStmt) Pos() int         { return s.TokenPos }
func (s *MoveFieldStmt) stmtNode()        {}

// Assignment is one <prop> = <literal> pair of a set statement.
type Assignment struct {
	Prop  string
	Value Literal
}

// SetStmt represents: set "<name>" <prop> = <literal> [, <prop> = <literal> ...]
type SetStmt struct {
	TokenPos    int
	Field       string
	Assignments []Assignment
}

func (s *SetStmt) nodeType() string { return "SetStmt" }
func (s *SetStmt) Pos() int         { return s.TokenPos }
func (s *SetStmt) stmtNode()        {}

// WidthStmt represents: width column <c> section <s> [tab <t>] = <n>
type WidthStmt struct {
	TokenPos int
	Column   int
	Section  int
	Tab      *int
	Width    int
}

func (s *WidthStmt) nodeType() string { return "WidthStmt" }
func (s *WidthStmt) Pos() int         { return s.TokenPos }
func (s *WidthStmt) stmtNode()        {}

// Action names a statement without arguments.
type Action string

const (
	ActionShow    Action = "show"
	ActionChanges Action = "changes"
	ActionCommit  Action = "commit"
	ActionRevert  Action = "revert"
)

// ActionStmt represents: show | changes | commit | revert
type ActionStmt struct {
	TokenPos int
	Action   Action
}

func (s *ActionStmt) nodeType() string { return "ActionStmt" }
func (s *ActionStmt) Pos() int         { return s.TokenPos }
func (s *ActionStmt) stmtNode()        {}

// MetaCmdStmt represents: :<command> [args...]
type MetaCmdStmt struct {
	TokenPos int
	Command  string // e.g. "help", "clear"
	Args     []string
}

func (s *MetaCmdStmt) nodeType() string { return "MetaCmdStmt" }
func (s *MetaCmdStmt) Pos() int         { return s.TokenPos }
func (s *MetaCmdStmt) stmtNode()        {}

// LiteralKind distinguishes literal types.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitInt
	LitFloat
	LitBool
	LitNull
)

// Literal is a typed value on the right of an assignment.
type Literal struct {
	Kind  LiteralKind
	Raw   string
	Int   int
	Float float64
	Bool  bool
}

// Value returns the literal as the property value a descriptor stores.
// Null clears the property.
func (l Literal) Value() any {
	switch l.Kind {
	case LitInt:
		return l.Int
	case LitFloat:
		return l.Float
	case LitBool:
		return l.Bool
	case LitNull:
		return nil
	}
	return l.Raw
}
