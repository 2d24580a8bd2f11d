// Package event defines the domain events an editing session emits and
// the publisher interface handlers send them through.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeLayoutLoaded    = "layout_loaded"
	TypeLayoutCommitted = "layout_committed"
	TypeLayoutReverted  = "layout_reverted"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID         string
	EventType  string
	OccurredAt time.Time
	Doctype    string
	SessionID  string
	Summary    string
	Payload    json.RawMessage
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// LayoutLoadedPayload carries event-specific data for LayoutLoaded.
type LayoutLoadedPayload struct {
	Doctype     string `json:"doctype"`
	SessionID   string `json:"session_id"`
	TotalFields int    `json:"total_fields"`
}

func NewLayoutLoaded(p LayoutLoadedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeLayoutLoaded,
		OccurredAt: time.Now(),
		Doctype:    p.Doctype,
		SessionID:  p.SessionID,
		Summary:    fmt.Sprintf("Loaded %s with %d fields", p.Doctype, p.TotalFields),
		Payload:    mustJSON(p),
	}
}

// LayoutCommittedPayload carries event-specific data for LayoutCommitted.
type LayoutCommittedPayload struct {
	Doctype     string   `json:"doctype"`
	SessionID   string   `json:"session_id"`
	ChangeCount int      `json:"change_count"`
	ChangedIDs  []string `json:"changed_ids"`
}

func NewLayoutCommitted(p LayoutCommittedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeLayoutCommitted,
		OccurredAt: time.Now(),
		Doctype:    p.Doctype,
		SessionID:  p.SessionID,
		Summary:    fmt.Sprintf("Committed %d changes to %s across %d fields", p.ChangeCount, p.Doctype, len(p.ChangedIDs)),
		Payload:    mustJSON(p),
	}
}

// LayoutRevertedPayload carries event-specific data for LayoutReverted.
type LayoutRevertedPayload struct {
	Doctype   string `json:"doctype"`
	SessionID string `json:"session_id"`
}

func NewLayoutReverted(p LayoutRevertedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeLayoutReverted,
		OccurredAt: time.Now(),
		Doctype:    p.Doctype,
		SessionID:  p.SessionID,
		Summary:    fmt.Sprintf("Reverted pending changes to %s", p.Doctype),
		Payload:    mustJSON(p),
	}
}
