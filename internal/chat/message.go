package chat

import (
	"encoding/json"
	"time"
)

// Message is the domain model for a conversation message. A message is
// created once by the store and is immutable afterwards except for ReadBy,
// which only grows.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	SenderName     string
	Content        string
	Attachments    json.RawMessage
	ReadBy         []int64
	CreatedAt      time.Time
}

// Less reports whether m sorts before other in canonical order:
// creation time ascending, ties broken by id.
func (m *Message) Less(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// SeenBy reports whether userID is in the message's read set.
// The sender implicitly counts as having seen their own message.
func (m *Message) SeenBy(userID int64) bool {
	if userID == m.SenderID {
		return true
	}
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// AddReader records userID in the read set. Adding an already-present
// reader is a no-op; the set never shrinks.
func (m *Message) AddReader(userID int64) bool {
	if userID == m.SenderID {
		return false
	}
	for _, id := range m.ReadBy {
		if id == userID {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, userID)
	return true
}

// Conversation is a fixed pair of participants exchanging messages,
// optionally linked to a gig.
type Conversation struct {
	ID             int64
	ParticipantIDs []int64
	GigID          *int64
	CreatedAt      time.Time
	LastMessageAt  time.Time
}

// HasParticipant reports whether userID may read and write the conversation.
func (c *Conversation) HasParticipant(userID int64) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Other returns the participant id that is not userID. For a two-party
// conversation this is the peer; returns 0 if userID is not a participant.
func (c *Conversation) Other(userID int64) int64 {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return 0
}
