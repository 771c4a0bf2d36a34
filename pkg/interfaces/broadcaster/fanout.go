package broadcaster

import (
	"context"
	"sync"
)

// Hub forwards events to a changing set of subscribers. Subscribers run
// synchronously in subscription order and must not call back into the
// publisher.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id     int
	topics map[string]struct{}
	target Broadcaster
}

// NewHub assembles a hub with the provided static targets.
func NewHub(targets ...Broadcaster) *Hub {
	h := &Hub{}
	for _, target := range targets {
		if target != nil {
			h.Subscribe(target)
		}
	}
	return h
}

var _ Broadcaster = (*Hub)(nil)

// Subscribe registers target for the given topics, or every topic when none
// are listed. The returned function removes the subscription.
func (h *Hub) Subscribe(target Broadcaster, topics ...string) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := subscription{id: h.nextID, target: target}
	if len(topics) > 0 {
		sub.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}
	h.subs = append(h.subs, sub)

	id := sub.id
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers the event to each matching subscriber, returning the
// first error observed.
func (h *Hub) Broadcast(ctx context.Context, event Event) error {
	h.mu.RLock()
	targets := make([]Broadcaster, 0, len(h.subs))
	for _, s := range h.subs {
		if s.topics != nil {
			if _, ok := s.topics[event.Topic]; !ok {
				continue
			}
		}
		targets = append(targets, s.target)
	}
	h.mu.RUnlock()

	var firstErr error
	for _, target := range targets {
		if err := target.Broadcast(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
