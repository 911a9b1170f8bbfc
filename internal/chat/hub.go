package chat

import "sync"

const subscriberBuffer = 16

// Subscriber is one open conversation view attached to the hub.
type Subscriber struct {
	UserID int64
	Events chan Event
}

// Hub fans out conversation events to live subscribers. One subscription
// per open conversation view; delivery is best-effort with REST history
// as the durability backstop.
type Hub struct {
	mu    sync.RWMutex
	convs map[int64]map[*Subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{convs: make(map[int64]map[*Subscriber]struct{})}
}

// Subscribe attaches a viewer to a conversation and returns its event feed.
func (h *Hub) Subscribe(conversationID, userID int64) *Subscriber {
	sub := &Subscriber{
		UserID: userID,
		Events: make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.convs[conversationID]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.convs[conversationID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Unsubscribe detaches a viewer. Safe to call more than once.
func (h *Hub) Unsubscribe(conversationID int64, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.convs[conversationID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.convs, conversationID)
		}
	}
}

// Publish sends an event to every subscriber of the conversation.
func (h *Hub) Publish(conversationID int64, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.convs[conversationID] {
		select {
		case sub.Events <- ev:
		default:
			// Drop if slow consumer; REST resync covers the gap.
		}
	}
}

// Subscribers returns the number of live subscribers for a conversation.
func (h *Hub) Subscribers(conversationID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.convs[conversationID])
}
