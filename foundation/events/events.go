// Package events fans node events out to the registered listeners.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the number of events a listener can fall behind before
// events are dropped for it. A websocket write can take a while.
const messageBuffer = 100

// Events maintains the set of listeners keyed by a unique id.
type Events struct {
	mu        sync.RWMutex
	listeners map[string]chan string
}

// New constructs an Events with no listeners.
func New() *Events {
	return &Events{
		listeners: make(map[string]chan string),
	}
}

// Acquire registers a listener under the specified id and returns the
// channel its events are delivered on. Acquiring an existing id returns the
// same channel.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.listeners[id]; exists {
		return ch
	}

	ch := make(chan string, messageBuffer)
	evt.listeners[id] = ch

	return ch
}

// Release closes and removes the listener registered under the id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.listeners[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.listeners, id)
	close(ch)

	return nil
}

// Send delivers the event to every listener. A listener whose buffer is full
// misses the event; Send never blocks.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.listeners {
		select {
		case ch <- s:
		default:
		}
	}
}

// Len returns the number of registered listeners.
func (evt *Events) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.listeners)
}

// Shutdown closes and removes every listener.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.listeners {
		delete(evt.listeners, id)
		close(ch)
	}
}
