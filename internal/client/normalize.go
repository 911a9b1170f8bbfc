package client

import (
	"encoding/json"
	"fmt"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/proto"
)

// NormalizeMessage converts a wire message into the canonical domain shape.
// The sender field is tolerated in three historical forms: an object, a
// single-element array wrapping that object, or a bare numeric id. Pure
// function: no I/O, no clock.
func NormalizeMessage(wire proto.Message) (chat.Message, error) {
	msg := chat.Message{
		ID:             wire.ID,
		ConversationID: wire.ConversationID,
		Content:        wire.Content,
		Attachments:    wire.Attachments,
		CreatedAt:      wire.CreatedAt.Time,
	}
	if len(wire.ReadBy) > 0 {
		msg.ReadBy = append(msg.ReadBy, wire.ReadBy...)
	}

	senderID, senderName, err := normalizeSender(wire.Sender)
	if err != nil {
		return chat.Message{}, err
	}
	msg.SenderID = senderID
	msg.SenderName = senderName

	return msg, nil
}

func normalizeSender(raw json.RawMessage) (int64, string, error) {
	if len(raw) == 0 {
		return 0, "", fmt.Errorf("message has no sender")
	}

	switch raw[0] {
	case '{':
		var sender proto.Sender
		if err := json.Unmarshal(raw, &sender); err != nil {
			return 0, "", fmt.Errorf("decode sender object: %w", err)
		}
		return sender.ID, sender.Username, nil
	case '[':
		var senders []proto.Sender
		if err := json.Unmarshal(raw, &senders); err != nil {
			return 0, "", fmt.Errorf("decode sender array: %w", err)
		}
		if len(senders) == 0 {
			return 0, "", fmt.Errorf("empty sender array")
		}
		return senders[0].ID, senders[0].Username, nil
	default:
		var id int64
		if err := json.Unmarshal(raw, &id); err != nil {
			return 0, "", fmt.Errorf("decode sender id: %w", err)
		}
		return id, "", nil
	}
}

// normalizeEvent maps a live channel envelope into a domain event.
// Unknown event names are skipped (nil, no error) so protocol additions
// don't break older clients.
func normalizeEvent(outbound proto.Outbound) (*chat.Event, error) {
	if outbound.Type == proto.OutboundTypeError {
		if outbound.Error != nil {
			return nil, fmt.Errorf("channel error: %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}
		return nil, fmt.Errorf("channel error")
	}

	switch outbound.Event {
	case proto.EventMessage:
		var wire proto.Message
		if err := json.Unmarshal(outbound.Data, &wire); err != nil {
			return nil, fmt.Errorf("decode message event: %w", err)
		}
		msg, err := NormalizeMessage(wire)
		if err != nil {
			return nil, err
		}
		return &chat.Event{Kind: chat.EventMessage, Message: &msg}, nil
	case proto.EventTyping:
		var typing proto.TypingEvent
		if err := json.Unmarshal(outbound.Data, &typing); err != nil {
			return nil, fmt.Errorf("decode typing event: %w", err)
		}
		return &chat.Event{Kind: chat.EventTyping, Typing: &chat.TypingSignal{
			ConversationID: typing.ConversationID,
			UserID:         typing.UserID,
			ExpiresAt:      typing.ExpiresAt,
		}}, nil
	case proto.EventRead:
		var read proto.ReadEvent
		if err := json.Unmarshal(outbound.Data, &read); err != nil {
			return nil, fmt.Errorf("decode read event: %w", err)
		}
		return &chat.Event{Kind: chat.EventRead, Read: &chat.ReadReceipt{
			ConversationID: read.ConversationID,
			MessageID:      read.MessageID,
			UserID:         read.UserID,
		}}, nil
	default:
		return nil, nil
	}
}
