package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/formlayout/internal/event"
)

// Indexer turns domain events into activity entries. It is an event bus
// handler.
type Indexer struct {
	store Store
}

// NewIndexer creates an indexer writing to store.
func NewIndexer(store Store) *Indexer {
	return &Indexer{store: store}
}

// HandleEvent indexes one event. Events without a doctype are ignored.
func (idx *Indexer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.Doctype == "" {
		return nil
	}
	entry := Entry{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		OccurredAt: evt.OccurredAt,
		Doctype:    evt.Doctype,
		SessionID:  evt.SessionID,
		Summary:    evt.Summary,
	}
	if evt.EventType == event.TypeLayoutCommitted {
		var p event.LayoutCommittedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return fmt.Errorf("activity: decoding %s payload: %w", evt.EventType, err)
		}
		entry.ChangeCount = p.ChangeCount
		entry.Fields = p.ChangedIDs
	}
	if err := idx.store.WriteEntries(ctx, []Entry{entry}); err != nil {
		return fmt.Errorf("activity: writing entry: %w", err)
	}
	return nil
}
