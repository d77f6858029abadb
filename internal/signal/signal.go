// Package signal is the in-process pub/sub bus for shift-scoped
// events. Dashboard consumers subscribe to invalidate their own
// counters; publishers fire and forget after the store write lands.
package signal

import "sync"

const (
	DrawerOpened = "drawer-opened"
	DrawerClosed = "drawer-closed"
	SaleRecorded = "sale-completed"
	OrderDone    = "order-completed"
)

type handler struct {
	id int
	fn func(payload any)
}

type Bus struct {
	mu     sync.RWMutex
	nextID int
	topics map[string][]handler
}

func NewBus() *Bus {
	return &Bus{topics: make(map[string][]handler)}
}

// Subscribe registers fn for a topic and returns its unsubscribe
// function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(topic string, fn func(payload any)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], handler{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		handlers := b.topics[topic]
		for i, h := range handlers {
			if h.id == id {
				b.topics[topic] = append(handlers[:i], handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes every subscriber of the topic synchronously with the
// payload. Subscribers run outside the bus lock so they may subscribe
// or unsubscribe from within a handler.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]handler, len(b.topics[topic]))
	copy(handlers, b.topics[topic])
	b.mu.RUnlock()

	for _, h := range handlers {
		h.fn(payload)
	}
}
