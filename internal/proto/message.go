package proto

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	ProtocolVersion = 1

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessage = "message"
	EventTyping  = "typing"
	EventRead    = "read"
)

// Outbound is the envelope for events pushed to conversation viewers.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Timestamp is a message timestamp on the wire. Emitted as RFC3339;
// decoding also accepts bare unix seconds, which older API versions sent.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}

	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("parse timestamp: %w", err)
	}
	sec, frac := math.Modf(seconds)
	t.Time = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return nil
}

// Sender identifies the author of a message on the wire.
type Sender struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Message is a conversation message on the wire, used by both the REST
// history endpoint and the live channel. Sender is kept raw: older API
// versions emitted it as a single-element array and some emit a bare id,
// so decoding is left to the boundary normalizer.
type Message struct {
	ID             int64           `json:"id"`
	ConversationID int64           `json:"conversation_id"`
	Sender         json.RawMessage `json:"sender,omitempty"`
	Content        string          `json:"content"`
	Attachments    json.RawMessage `json:"attachments,omitempty"`
	ReadBy         []int64         `json:"read_by,omitempty"`
	CreatedAt      Timestamp       `json:"created_at"`
}

// TypingEvent notifies that a participant is composing.
type TypingEvent struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// ReadEvent notifies that a participant has seen a message.
type ReadEvent struct {
	ConversationID int64 `json:"conversation_id"`
	MessageID      int64 `json:"message_id"`
	UserID         int64 `json:"user_id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
