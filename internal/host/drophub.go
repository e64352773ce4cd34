package host

import (
	"sync"

	"filedrop/internal/upload"
	"filedrop/pkg/logger"
)

const subscriberBuffer = 16

// DropHub fans window drag-and-drop events out to every subscribed widget.
// Hover and cancel events are dropped for a subscriber whose buffer is full.
// Completed drops are never dropped: Publish waits until the subscriber has
// room or unsubscribes.
type DropHub struct {
	log *logger.Logger

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan upload.DropEvent
	done chan struct{}

	// mu serializes sends with the close in unsubscribe.
	mu     sync.Mutex
	closed bool
}

// NewDropHub creates an empty hub.
func NewDropHub() *DropHub {
	return &DropHub{
		log:         logger.GetInstance(),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber. The returned function removes it and
// closes its channel; extra calls are ignored.
func (h *DropHub) Subscribe() (<-chan upload.DropEvent, func()) {
	sub := &subscriber{
		ch:   make(chan upload.DropEvent, subscriberBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, sub)
			h.mu.Unlock()

			close(sub.done)
			sub.mu.Lock()
			sub.closed = true
			close(sub.ch)
			sub.mu.Unlock()
		})
	}
}

// Publish delivers ev to all subscribers.
func (h *DropHub) Publish(ev upload.DropEvent) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.send(sub, ev)
	}
}

func (h *DropHub) send(sub *subscriber, ev upload.DropEvent) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}

	select {
	case sub.ch <- ev:
		return
	default:
	}

	if ev.Type != upload.DropCompleted {
		h.log.Warnf("drop subscriber is full, discarding %s event", ev.Type)
		return
	}
	h.log.Warnf("drop subscriber is full, waiting to deliver %d dropped paths", len(ev.Paths))
	select {
	case sub.ch <- ev:
	case <-sub.done:
	}
}

// HoverStarted publishes a DropHoverStarted event.
func (h *DropHub) HoverStarted() {
	h.Publish(upload.DropEvent{Type: upload.DropHoverStarted})
}

// Cancelled publishes a DropCancelled event.
func (h *DropHub) Cancelled() {
	h.Publish(upload.DropEvent{Type: upload.DropCancelled})
}

// Dropped publishes a DropCompleted event carrying paths.
func (h *DropHub) Dropped(paths []string) {
	h.Publish(upload.DropEvent{Type: upload.DropCompleted, Paths: append([]string(nil), paths...)})
}

// Count returns the number of live subscribers.
func (h *DropHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
