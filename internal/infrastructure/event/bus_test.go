package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openpos/settlement/internal/domain/shared"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) seen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func testEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Test", uuid.New())
	return &e
}

func TestInMemoryEventBus(t *testing.T) {
	t.Run("delivers to subscribed handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"OrderSettled"}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), testEvent("OrderSettled")))
		assert.Equal(t, 1, handler.seen())
	})

	t.Run("does not deliver unrelated types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"OrderSettled"}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), testEvent("StockChanged")))
		assert.Equal(t, 0, handler.seen())
	})

	t.Run("wildcard handler receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(),
			testEvent("OrderSettled"), testEvent("StockChanged")))
		assert.Equal(t, 2, handler.seen())
	})

	t.Run("failing handler does not stop others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{"OrderSettled"}, err: errors.New("fail")}
		healthy := &recordingHandler{types: []string{"OrderSettled"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(context.Background(), testEvent("OrderSettled")))
		assert.Equal(t, 1, healthy.seen())
	})

	t.Run("panicking handler is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := &recordingHandler{types: []string{"OrderSettled"}, panics: true}
		healthy := &recordingHandler{types: []string{"OrderSettled"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(context.Background(), testEvent("OrderSettled")))
		assert.Equal(t, 1, healthy.seen())
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"OrderSettled"}}
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), testEvent("OrderSettled")))
		assert.Equal(t, 0, handler.seen())
	})
}

func TestHandlerRegistry(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := &recordingHandler{types: []string{"OrderSettled"}}
	wildcard := &recordingHandler{}

	registry.Register(typed, "OrderSettled")
	registry.Register(wildcard)

	assert.Len(t, registry.GetHandlers("OrderSettled"), 2)
	assert.Len(t, registry.GetHandlers("StockChanged"), 1)

	registry.Unregister(typed)
	assert.Len(t, registry.GetHandlers("OrderSettled"), 1)
}
