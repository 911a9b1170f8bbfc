package chat

import "time"

// EventKind is a notification the conversation layer emits to subscribers.
type EventKind int

const (
	// EventMessage carries a newly persisted message.
	EventMessage EventKind = iota
	// EventTyping carries a short-lived composing signal.
	EventTyping
	// EventRead carries a read-receipt mutation.
	EventRead
)

// TypingSignal is an ephemeral "user is composing" ping. It is never
// persisted; absence after ExpiresAt is the only stop signal.
type TypingSignal struct {
	ConversationID int64
	UserID         int64
	ExpiresAt      time.Time
}

// ReadReceipt records that a participant has seen a message.
type ReadReceipt struct {
	ConversationID int64
	MessageID      int64
	UserID         int64
}

// Event is pushed to conversation subscribers to describe what happened.
type Event struct {
	Kind    EventKind
	Message *Message
	Typing  *TypingSignal
	Read    *ReadReceipt
}
