// Copyright 2026 Stratum Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bus provides a typed in-process publish/subscribe event bus.
//
// Delivery is synchronous: Publish fans out to subscribers in subscription
// order before returning. There is no replay and no persistence.
package bus

import (
	"log/slog"
	"sync"
)

// Handler receives published events. Implementations must be comparable
// (pointer receivers) so duplicate subscriptions collapse.
type Handler interface {
	HandleEvent(event Event)
}

type funcHandler struct {
	fn func(Event)
}

func (h *funcHandler) HandleEvent(event Event) { h.fn(event) }

// Func wraps a function as a Handler. The returned value is a distinct
// subscription identity: subscribing the same *Handler twice collapses,
// two Func calls over the same function do not.
func Func(fn func(Event)) Handler {
	return &funcHandler{fn: fn}
}

// Bus is a typed publish/subscribe bus for a single process.
type Bus struct {
	mu       sync.Mutex
	handlers map[EventType][]Handler
}

// New creates an empty event bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for an event type. Subscribing the same
// (type, handler) pair twice is a no-op.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	if handler == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, h := range b.handlers[eventType] {
		if h == handler {
			return
		}
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Unsubscribe removes a handler for an event type. Unknown pairs are a no-op.
func (b *Bus) Unsubscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h == handler {
			b.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to all subscribers of its type, in subscription
// order. A panicking handler is logged and the remaining handlers still run.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[event.Type()]...)
	b.mu.Unlock()

	for _, h := range handlers {
		b.deliver(h, event)
	}
}

func (b *Bus) deliver(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked",
				"event_type", string(event.Type()),
				"server", event.ServerName(),
				"panic", r)
		}
	}()
	h.HandleEvent(event)
}

// SubscriberCount returns the number of handlers for an event type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[eventType])
}
