package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
)

// Sender posts a message and returns the canonical persisted copy.
type Sender interface {
	Send(ctx context.Context, conversationID int64, content string) (*chat.Message, error)
}

// Composer captures outgoing content and drives the optimistic-send path:
// an entry appears on the timeline immediately and is reconciled against
// the persisted copy when the send round trip completes.
type Composer struct {
	sender Sender
	sync   *Synchronizer

	conversationID int64
	selfID         int64
	selfName       string

	mu      sync.Mutex
	input   string
	sending bool
}

// NewComposer creates a composer bound to one conversation view.
func NewComposer(sender Sender, sync *Synchronizer, conversationID, selfID int64, selfName string) *Composer {
	return &Composer{
		sender:         sender,
		sync:           sync,
		conversationID: conversationID,
		selfID:         selfID,
		selfName:       selfName,
	}
}

// SetInput replaces the draft text.
func (c *Composer) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// Input returns the current draft text.
func (c *Composer) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Sending reports whether a send round trip is in flight; the submit
// affordance should be disabled while true.
func (c *Composer) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Submit validates and sends the current draft. Empty input after
// trimming is rejected without any network call. On success the draft is
// cleared; on failure it is left populated so the user can retry, and the
// optimistic entry is removed rather than left stuck.
func (c *Composer) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return &APIError{Kind: KindValidation, Message: "send already in flight"}
	}
	content := strings.TrimSpace(c.input)
	if content == "" {
		c.mu.Unlock()
		return &APIError{Kind: KindValidation, Message: "content must not be empty"}
	}
	c.sending = true
	c.mu.Unlock()

	localID := uuid.NewString()
	c.sync.AddPending(localID, chat.Message{
		ConversationID: c.conversationID,
		SenderID:       c.selfID,
		SenderName:     c.selfName,
		Content:        content,
		CreatedAt:      time.Now(),
	})

	msg, err := c.sender.Send(ctx, c.conversationID, content)

	c.mu.Lock()
	c.sending = false
	if err == nil {
		c.input = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.sync.DropPending(localID)
		return err
	}

	c.sync.ReconcileSend(localID, msg)
	return nil
}
