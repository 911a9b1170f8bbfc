package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
)

// TypingPinger delivers fire-and-forget composing pings.
type TypingPinger interface {
	Typing(ctx context.Context, conversationID int64) error
}

// TypingTracker tracks composing presence for one open conversation.
// Outgoing pings are best-effort; incoming signals expire on their own —
// absence of renewal is the only stop signal.
type TypingTracker struct {
	pinger         TypingPinger
	conversationID int64
	selfID         int64
	ttl            time.Duration
	log            zerolog.Logger

	mu       sync.Mutex
	now      func() time.Time
	lastSeen map[int64]time.Time
}

// NewTypingTracker creates a tracker with the given signal lifetime.
func NewTypingTracker(pinger TypingPinger, conversationID, selfID int64, ttl time.Duration, logger *zerolog.Logger) *TypingTracker {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &TypingTracker{
		pinger:         pinger,
		conversationID: conversationID,
		selfID:         selfID,
		ttl:            ttl,
		log:            l,
		now:            time.Now,
		lastSeen:       make(map[int64]time.Time),
	}
}

// Send emits a composing ping. Safe to call on every keystroke; failures
// are logged and swallowed, never surfaced to the user.
func (t *TypingTracker) Send(ctx context.Context) {
	if err := t.pinger.Typing(ctx, t.conversationID); err != nil {
		t.log.Debug().Err(err).Msg("typing ping failed")
	}
}

// Observe records a signal seen on the live channel or via polling.
// The local user's own signals are ignored.
func (t *TypingTracker) Observe(signal chat.TypingSignal) {
	if signal.ConversationID != t.conversationID || signal.UserID == t.selfID {
		return
	}
	t.mu.Lock()
	t.lastSeen[signal.UserID] = t.now()
	t.mu.Unlock()
}

// ObservePoll records the polling fallback result.
func (t *TypingTracker) ObservePoll(userIDs []int64) {
	now := t.now()
	t.mu.Lock()
	for _, id := range userIDs {
		if id != t.selfID {
			t.lastSeen[id] = now
		}
	}
	t.mu.Unlock()
}

// OtherTyping reports whether any participant other than the local user
// has an unexpired composing signal.
func (t *TypingTracker) OtherTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, seen := range t.lastSeen {
		if now.Sub(seen) < t.ttl {
			return true
		}
		delete(t.lastSeen, id)
	}
	return false
}
