package http

import (
	"encoding/json"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/proto"
)

func messageToWire(msg *chat.Message) proto.Message {
	sender, _ := json.Marshal(proto.Sender{ID: msg.SenderID, Username: msg.SenderName})
	return proto.Message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         sender,
		Content:        msg.Content,
		Attachments:    msg.Attachments,
		ReadBy:         msg.ReadBy,
		CreatedAt:      proto.Timestamp{Time: msg.CreatedAt},
	}
}

func encodeAttachments(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func outboundFromEvent(event chat.Event) (proto.Outbound, error) {
	var (
		name    string
		payload any
	)
	switch event.Kind {
	case chat.EventMessage:
		name = proto.EventMessage
		wire := messageToWire(event.Message)
		payload = wire
	case chat.EventTyping:
		name = proto.EventTyping
		payload = proto.TypingEvent{
			ConversationID: event.Typing.ConversationID,
			UserID:         event.Typing.UserID,
			ExpiresAt:      event.Typing.ExpiresAt,
		}
	case chat.EventRead:
		name = proto.EventRead
		payload = proto.ReadEvent{
			ConversationID: event.Read.ConversationID,
			MessageID:      event.Read.MessageID,
			UserID:         event.Read.UserID,
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return proto.Outbound{}, err
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: name,
		Data:  data,
	}, nil
}
