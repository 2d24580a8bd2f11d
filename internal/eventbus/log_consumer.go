package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	log *zap.Logger
}

func NewLogConsumer(log *zap.Logger) *LogConsumer { return &LogConsumer{log: log} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	c.log.Info("event: "+evt.Summary,
		zap.String("type", evt.EventType),
		zap.String("id", evt.ID),
		zap.String("doctype", evt.Doctype),
		zap.String("session", evt.SessionID),
	)
	return nil
}
