// Package drawer holds the observable drawer-status object. It is
// constructed once at the application root and injected into the
// service and any consumer that needs push updates, rather than living
// as package-level mutable state.
package drawer

import (
	"sync"
	"time"

	"smartfix/backend/internal/domain"
)

type Watch struct {
	mu     sync.RWMutex
	status domain.DrawerStatus
	nextID int
	subs   map[int]func(domain.DrawerStatus)
}

func NewWatch() *Watch {
	return &Watch{
		status: domain.DrawerStatus{CheckedAt: time.Now().UTC()},
		subs:   make(map[int]func(domain.DrawerStatus)),
	}
}

// Snapshot returns the current drawer status.
func (w *Watch) Snapshot() domain.DrawerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Set replaces the status and notifies every subscriber with the new
// value. Subscribers run outside the lock.
func (w *Watch) Set(status domain.DrawerStatus) {
	w.mu.Lock()
	w.status = status
	subs := make([]func(domain.DrawerStatus), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(status)
	}
}

// Subscribe registers a callback for status changes and returns its
// unsubscribe function.
func (w *Watch) Subscribe(fn func(domain.DrawerStatus)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}
