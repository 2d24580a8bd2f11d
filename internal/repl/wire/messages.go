// Package wire defines the WebSocket protocol for the layout REPL.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/formlayout/internal/layout"
	"github.com/matthewbaird/formlayout/internal/repl/autocomplete"
	"github.com/matthewbaird/formlayout/internal/types"
)

// Message types.
const (
	TypeExecute      = "execute"
	TypeAutocomplete = "autocomplete"
	TypePing         = "ping"

	TypeSession     = "session"
	TypeStructure   = "structure"
	TypeChanges     = "changes"
	TypeMessage     = "message"
	TypeMeta        = "meta"
	TypeDone        = "done"
	TypeError       = "error"
	TypeCompletions = "completions"
	TypePong        = "pong"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "execute", "autocomplete", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// ExecuteData is the payload for "execute" messages.
type ExecuteData struct {
	LCL string `json:"lcl"`
}

// AutocompleteData is the payload for "autocomplete" messages.
type AutocompleteData struct {
	LCL    string `json:"lcl"`
	Cursor int    `json:"cursor"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// StructureData carries the render tree after a statement.
type StructureData struct {
	Message   string             `json:"message,omitempty"`
	Structure *layout.RenderTree `json:"structure"`
}

// ChangesData carries a pending or committed change set.
type ChangesData struct {
	Message string          `json:"message,omitempty"`
	Changes types.ChangeSet `json:"changes"`
}

// MessageData carries a plain status line.
type MessageData struct {
	Message string `json:"message"`
}

// DoneData signals completion of an execute request.
type DoneData struct {
	Statements int          `json:"statements"`
	State      layout.State `json:"state"`
	Stale      bool         `json:"stale"`
	Elapsed    string       `json:"elapsed"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Line       int    `json:"line,omitempty"`
	Col        int    `json:"col,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// CompletionsData carries autocomplete suggestions.
type CompletionsData struct {
	Items []autocomplete.CompletionItem `json:"items"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
	Doctype   string `json:"doctype,omitempty"`
	Resumed   bool   `json:"resumed"`
}
