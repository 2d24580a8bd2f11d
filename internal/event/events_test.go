package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayoutCommitted(t *testing.T) {
	evt := NewLayoutCommitted(LayoutCommittedPayload{
		Doctype:     "Lead",
		SessionID:   "s-1",
		ChangeCount: 5,
		ChangedIDs:  []string{"a", "b"},
	})

	assert.Equal(t, TypeLayoutCommitted, evt.EventType)
	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.OccurredAt.IsZero())
	assert.Equal(t, "Lead", evt.Doctype)
	assert.Equal(t, "s-1", evt.SessionID)
	assert.Equal(t, "Committed 5 changes to Lead across 2 fields", evt.Summary)

	var p LayoutCommittedPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, []string{"a", "b"}, p.ChangedIDs)
}

func TestEventIDsAreUnique(t *testing.T) {
	a := NewLayoutReverted(LayoutRevertedPayload{Doctype: "Lead"})
	b := NewLayoutReverted(LayoutRevertedPayload{Doctype: "Lead"})
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "Reverted pending changes to Lead", a.Summary)

	l := NewLayoutLoaded(LayoutLoadedPayload{Doctype: "Lead", TotalFields: 12})
	assert.Equal(t, "Loaded Lead with 12 fields", l.Summary)
}
