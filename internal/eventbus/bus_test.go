package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matthewbaird/formlayout/internal/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, evt.EventType)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestBus_DispatchesInOrderAndDrainsOnStop(t *testing.T) {
	bus := New(8, zaptest.NewLogger(t))
	rec := &recorder{}
	bus.Subscribe("recorder", rec)
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Start(context.Background())

	bus.Publish(context.Background(), event.NewLayoutLoaded(event.LayoutLoadedPayload{Doctype: "Lead"}))
	bus.Publish(context.Background(), event.NewLayoutCommitted(event.LayoutCommittedPayload{Doctype: "Lead"}))
	bus.Publish(context.Background(), event.NewLayoutReverted(event.LayoutRevertedPayload{Doctype: "Lead"}))
	bus.Stop()
	bus.Stop()

	assert.Equal(t, []string{event.TypeLayoutLoaded, event.TypeLayoutCommitted, event.TypeLayoutReverted}, rec.types())
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := New(1, zap.New(core))
	rec := &recorder{}
	bus.Subscribe("recorder", rec)

	// Not started: the second publish finds the buffer full.
	bus.Publish(context.Background(), event.NewLayoutLoaded(event.LayoutLoadedPayload{}))
	bus.Publish(context.Background(), event.NewLayoutLoaded(event.LayoutLoadedPayload{}))
	require.Equal(t, 1, logs.FilterMessage("eventbus: buffer full, dropping event").Len())

	bus.Start(context.Background())
	bus.Stop()
	assert.Len(t, rec.types(), 1)
}

func TestBus_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := New(4, nil)
	rec := &recorder{}
	bus.Subscribe("recorder", rec)
	bus.Publish(ctx, event.NewLayoutLoaded(event.LayoutLoadedPayload{}))
	bus.Start(ctx)
	cancel()
	<-bus.done
	assert.Len(t, rec.types(), 1)
}

func TestBus_PublishAfterStopIsDropped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := New(4, zap.New(core))
	bus.Start(context.Background())
	bus.Stop()

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.NewLayoutLoaded(event.LayoutLoadedPayload{}))
	})
	assert.Equal(t, 1, logs.FilterMessage("eventbus: stopped, dropping event").Len())
}

type staleCounter struct {
	doctype, except string
}

func (s *staleCounter) MarkStale(doctype, exceptID string) int {
	s.doctype, s.except = doctype, exceptID
	return 2
}

func TestStaleConsumer(t *testing.T) {
	m := &staleCounter{}
	c := NewStaleConsumer(m, zap.NewNop())

	require.NoError(t, c.HandleEvent(context.Background(), event.NewLayoutReverted(event.LayoutRevertedPayload{Doctype: "Lead"})))
	assert.Empty(t, m.doctype)

	require.NoError(t, c.HandleEvent(context.Background(), event.NewLayoutCommitted(event.LayoutCommittedPayload{
		Doctype: "Lead", SessionID: "s-1",
	})))
	assert.Equal(t, "Lead", m.doctype)
	assert.Equal(t, "s-1", m.except)
}

func TestLogConsumer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := NewLogConsumer(zap.New(core))

	require.NoError(t, c.HandleEvent(context.Background(), event.NewLayoutReverted(event.LayoutRevertedPayload{Doctype: "Lead"})))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event: Reverted pending changes to Lead", logs.All()[0].Message)
}
