package events

import (
	"sync"
)

type Subscriber struct {
	ID         string
	Downstream string // Filter by downstream name (empty = all)
	Kind       string // Filter by event kind (empty = all)
	Activity   chan DeliveryActivity
}

type Hub struct {
	subscribers map[string]*Subscriber
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
	}
}

func (h *Hub) Subscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub.ID] = sub
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.Activity)
		delete(h.subscribers, id)
	}
}

func (h *Hub) Publish(activity DeliveryActivity) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if h.matchesFilter(sub, activity) {
			select {
			case sub.Activity <- activity:
			default:
				// Non-blocking: skip if subscriber buffer is full
			}
		}
	}
}

func (h *Hub) matchesFilter(sub *Subscriber, activity DeliveryActivity) bool {
	if sub.Downstream != "" && sub.Downstream != activity.Downstream {
		return false
	}
	if sub.Kind != "" && sub.Kind != activity.Kind {
		return false
	}
	return true
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
