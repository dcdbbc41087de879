// Package events fans out node events to any number of subscribers such as
// websocket clients.
package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is the number of events held for a subscriber that is
// slow to receive. Events beyond that are dropped for the subscriber.
const subscriberBuffer = 100

// Events maintains the set of subscribers keyed by a unique id.
type Events struct {
	mu     sync.RWMutex
	subs   map[string]chan string
	closed bool
}

// New constructs an empty set of subscribers.
func New() *Events {
	return &Events{
		subs: make(map[string]chan string),
	}
}

// Subscribe registers a new subscriber and returns its id and the channel
// events are delivered on. After Shutdown the channel returned is closed.
func (evt *Events) Subscribe() (string, <-chan string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)

	if evt.closed {
		close(ch)
		return id, ch
	}

	evt.subs[id] = ch
	return id, ch
}

// Unsubscribe closes and removes the channel that was provided by the call
// to Subscribe.
func (evt *Events) Unsubscribe(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("subscriber %q does not exist", id)
	}

	delete(evt.subs, id)
	close(ch)

	return nil
}

// Count returns the number of current subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Send formats the event and delivers it to every subscriber. Send never
// blocks on a subscriber that is not ready to receive.
func (evt *Events) Send(v string, args ...any) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	if len(evt.subs) == 0 {
		return
	}

	s := fmt.Sprintf(v, args...)
	for _, ch := range evt.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
	evt.closed = true
}
