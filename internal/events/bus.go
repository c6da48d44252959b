// Package events provides the in-process event bus that decouples the
// business-logic services from real-time delivery.
package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event names published by the services.
const (
	EventNotification = "notification"
	EventMessage      = "message"
)

// Handler receives a published payload. Dispatch is synchronous.
type Handler func(payload any)

// Bus is a minimal synchronous publish/subscribe bus. Subscribers are
// invoked in subscription order; a panicking subscriber is recovered so
// one bad handler cannot take down the emitter.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the named event.
func (b *Bus) Subscribe(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Publish dispatches payload to all current subscribers of event.
// Delivery is best-effort: there is no queuing and no retry.
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	subs := make([]Handler, len(b.handlers[event]))
	copy(subs, b.handlers[event])
	b.mu.RUnlock()

	for _, h := range subs {
		b.dispatch(event, h, payload)
	}
}

func (b *Bus) dispatch(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("event", event).Interface("panic", r).Msg("event subscriber panicked")
		}
	}()
	h(payload)
}

// NotificationEvent is the payload published on EventNotification.
type NotificationEvent struct {
	UserID  string
	Payload any
}

// MessageEvent is the payload published on EventMessage.
type MessageEvent struct {
	RoomID  string
	Payload any
}
