// Package events fans daemon events out to in-process subscribers.
package events

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// subscriberBuffer is how far a subscriber may fall behind before events
// are dropped for it.
const subscriberBuffer = 16

type subscription struct {
	names []string
}

func (s subscription) wants(name string) bool {
	return len(s.names) == 0 || slices.Contains(s.names, name)
}

// EventHub delivers published events to subscribers. Delivery never blocks
// the publisher.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[chan Event]subscription
	closed bool
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan Event]subscription)}
}

// Subscribe returns a channel receiving events with one of the given names,
// or every event when no name is given. The channel is closed by
// Unsubscribe or Close.
func (h *EventHub) Subscribe(names ...string) chan Event {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = subscription{names: names}

	return ch
}

func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Close closes every subscription. Later publishes are dropped.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		close(ch)
	}
	h.subs = map[chan Event]subscription{}
	h.closed = true
}

// Publish encodes payload as JSON and hands it to matching subscribers.
// A nil hub drops everything.
func (h *EventHub) Publish(name string, payload any) {
	if h == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).WithField("event", name).Warn("failed to encode event")
		return
	}
	ev := Event{Name: name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch, sub := range h.subs {
		if !sub.wants(name) {
			continue
		}
		select {
		case ch <- ev:
		default:
			logrus.WithField("event", name).Debug("subscriber is behind, dropping event")
		}
	}
}
