package chat

import (
	"sync"
	"time"
)

// TypingRegistry tracks short-TTL composing signals per conversation.
// Signals silently expire; there is no explicit "stopped typing" input.
type TypingRegistry struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	byConv map[int64]map[int64]time.Time
}

// NewTypingRegistry creates a registry with the given signal lifetime.
func NewTypingRegistry(ttl time.Duration) *TypingRegistry {
	return &TypingRegistry{
		ttl:    ttl,
		now:    time.Now,
		byConv: make(map[int64]map[int64]time.Time),
	}
}

// Ping records that userID is composing in the conversation and returns
// the resulting signal. Safe to call on every keystroke.
func (r *TypingRegistry) Ping(conversationID, userID int64) TypingSignal {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.byConv[conversationID]
	if !ok {
		users = make(map[int64]time.Time)
		r.byConv[conversationID] = users
	}
	expires := r.now().Add(r.ttl)
	users[userID] = expires

	return TypingSignal{
		ConversationID: conversationID,
		UserID:         userID,
		ExpiresAt:      expires,
	}
}

// Active returns the ids of users with an unexpired signal in the
// conversation, pruning expired entries as a side effect.
func (r *TypingRegistry) Active(conversationID int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.byConv[conversationID]
	if !ok {
		return nil
	}

	now := r.now()
	active := make([]int64, 0, len(users))
	for id, expires := range users {
		if now.Before(expires) {
			active = append(active, id)
		} else {
			delete(users, id)
		}
	}
	if len(users) == 0 {
		delete(r.byConv, conversationID)
	}
	return active
}
