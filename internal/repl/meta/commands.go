// Package meta handles REPL meta-commands (:help, :clear, :env, :history,
// :doctypes, :fields).
package meta

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthewbaird/formlayout/internal/editor"
	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/repl/lcl"
	"github.com/matthewbaird/formlayout/internal/suggest"
)

// Lister lists the doctypes available for loading.
type Lister interface {
	Doctypes(ctx context.Context) ([]string, error)
}

// Handler dispatches meta-commands.
type Handler struct {
	doctypes Lister
}

// New creates a meta-command handler.
func New(doctypes Lister) *Handler {
	return &Handler{doctypes: doctypes}
}

// Result is the output of a meta-command execution.
type Result struct {
	Output string `json:"output"`
	Clear  bool   `json:"clear,omitempty"` // Signal frontend to clear screen
}

var commands = []string{"help", "clear", "env", "history", "doctypes", "fields"}

// Commands returns the meta-command names without the leading colon.
func Commands() []string { return append([]string(nil), commands...) }

// Execute runs a meta-command and returns the result. Call it from inside
// editor.Manager.With.
func (h *Handler) Execute(ctx context.Context, e *editor.Entry, s *layout.Session, command string, args []string) (*Result, error) {
	switch command {
	case "help":
		return h.help(args)
	case "clear":
		return &Result{Clear: true}, nil
	case "env":
		return h.env(e, s)
	case "history":
		return h.history(e)
	case "doctypes":
		return h.listDoctypes(ctx)
	case "fields":
		return h.fields(s)
	}
	msg := fmt.Sprintf("unknown meta-command ':%s'. Type :help for available commands", command)
	if hint := suggest.From(command, commands, 2); hint != "" {
		msg += " (" + hint + ")"
	}
	return nil, fmt.Errorf("%s", msg)
}

func (h *Handler) help(args []string) (*Result, error) {
	if len(args) > 0 {
		return h.helpTopic(args[0])
	}

	help := `LCL: Layout Command Language

Documents:
  load "<doctype>"         Load a doctype into the session
  tab <n>                  Select the current tab

Layout:
  move section <from> to <to> [tab <t>]
  move column <from> to <to> section <s> [tab <t>]
  move field "<name>" to column <c> section <s> [tab <t>] [at <i>]
  width column <c> section <s> [tab <t>] = <n>
  set "<name>" <prop> = <value> [, <prop> = <value> ...]

Review:
  show                     Show the current structure
  changes                  Show pending changes
  commit                   Persist pending changes
  revert                   Discard pending changes

Indexes start at 0. Without "tab" the current tab is used.
Values: "text", 12, 1.5, true, false, null (null clears a property).
Statements end at a line break or ';'. "--" starts a comment.

Meta-commands:
  :help [topic]    Show help
  :clear           Clear the screen
  :env             Show session info
  :history         Show command history
  :doctypes        List doctypes available to load
  :fields          List the fields of the loaded doctype

Examples:
  load "Customer"
  move section 2 to 0
  move field "email" to column 1 section 0 at 0
  set "phone" label = "Mobile", reqd = 1
  width column 1 section 0 = 4`

	return &Result{Output: help}, nil
}

func (h *Handler) helpTopic(topic string) (*Result, error) {
	switch strings.ToLower(topic) {
	case "load":
		return &Result{Output: "load \"<doctype>\"\n\nLoads the doctype's fields with all committed changes applied. Pending changes are discarded."}, nil
	case "tab":
		return &Result{Output: "tab <n>\n\nSelects the tab that statements without a \"tab\" clause act on."}, nil
	case "move":
		return &Result{Output: "move section <from> to <to> [tab <t>]\nmove column <from> to <to> section <s> [tab <t>]\nmove field \"<name>\" to column <c> section <s> [tab <t>] [at <i>]\n\nColumn moves keep the first column free of a column break. Without \"at\" a field is appended to the column."}, nil
	case "set":
		return &Result{Output: "set \"<name>\" <prop> = <value> [, <prop> = <value> ...]\n\nfieldname, fieldtype and position cannot be set. If any assignment is rejected, none are applied."}, nil
	case "width":
		return &Result{Output: fmt.Sprintf("width column <c> section <s> [tab <t>] = <n>\n\nColumn 0 always auto-sizes. Widths range from 0 (auto) to %d and a section's widths may total at most %d.", layout.MaxColumnWidth, layout.GridBudget)}, nil
	case "show", "changes", "commit", "revert":
		return &Result{Output: "show | changes | commit | revert\n\nReview the structure, inspect the pending change set, persist it, or discard it."}, nil
	}
	msg := fmt.Sprintf("No help available for '%s'", topic)
	if hint := suggest.From(topic, lcl.Verbs, 2); hint != "" {
		msg += ", " + hint
	}
	return &Result{Output: msg}, nil
}

func (h *Handler) env(e *editor.Entry, s *layout.Session) (*Result, error) {
	info := e.Snapshot(s.State())
	doctype := info.Doctype
	if doctype == "" {
		doctype = "(none)"
	}
	out := fmt.Sprintf("Session: %s\nDoctype: %s\nState: %s\nStale: %t\nCreated: %s\nLast active: %s\nHistory entries: %d",
		info.ID, doctype, info.State, info.Stale,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		info.LastActiveAt.Format("2006-01-02 15:04:05"),
		len(e.History()))
	return &Result{Output: out}, nil
}

func (h *Handler) history(e *editor.Entry) (*Result, error) {
	history := e.History()
	if len(history) == 0 {
		return &Result{Output: "(no history)"}, nil
	}

	var b strings.Builder
	for i, entry := range history {
		fmt.Fprintf(&b, "%3d  %s\n", i+1, entry)
	}
	return &Result{Output: b.String()}, nil
}

func (h *Handler) listDoctypes(ctx context.Context) (*Result, error) {
	names, err := h.doctypes.Doctypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing doctypes: %w", err)
	}
	if len(names) == 0 {
		return &Result{Output: "(no doctypes)"}, nil
	}
	return &Result{Output: fmt.Sprintf("Doctypes (%d):\n  %s", len(names), strings.Join(names, "\n  "))}, nil
}

func (h *Handler) fields(s *layout.Session) (*Result, error) {
	if s.State() == layout.StateEmpty {
		return nil, layout.ErrNotLoaded
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Doctype: %s\n\n", s.Doctype())
	for _, f := range s.Flatten() {
		fmt.Fprintf(&b, "  %-30s %-16s %s\n", f.Name, f.Type, f.Label())
	}
	return &Result{Output: b.String()}, nil
}
