package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/event"
)

// StaleMarker flags editing sessions whose baseline was superseded.
type StaleMarker interface {
	MarkStale(doctype, exceptID string) int
}

// StaleConsumer marks the other open sessions on a doctype stale when one
// session commits it.
type StaleConsumer struct {
	sessions StaleMarker
	log      *zap.Logger
}

// NewStaleConsumer creates a consumer that flags sessions through m.
func NewStaleConsumer(m StaleMarker, log *zap.Logger) *StaleConsumer {
	return &StaleConsumer{sessions: m, log: log}
}

func (c *StaleConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	if evt.EventType != event.TypeLayoutCommitted {
		return nil
	}
	if n := c.sessions.MarkStale(evt.Doctype, evt.SessionID); n > 0 {
		c.log.Info("eventbus: marked sessions stale",
			zap.String("doctype", evt.Doctype), zap.Int("sessions", n))
	}
	return nil
}
