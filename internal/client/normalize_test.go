package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/proto"
)

func TestNormalizeMessageSenderShapes(t *testing.T) {
	cases := []struct {
		name     string
		sender   string
		wantID   int64
		wantName string
	}{
		{"object", `{"id":7,"username":"bob"}`, 7, "bob"},
		{"single element array", `[{"id":7,"username":"bob"}]`, 7, "bob"},
		{"bare id", `7`, 7, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := NormalizeMessage(proto.Message{
				ID:             1,
				ConversationID: 2,
				Sender:         json.RawMessage(tc.sender),
				Content:        "hi",
				CreatedAt:      proto.Timestamp{Time: baseTime},
			})
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if msg.SenderID != tc.wantID || msg.SenderName != tc.wantName {
				t.Fatalf("got sender (%d, %q), want (%d, %q)",
					msg.SenderID, msg.SenderName, tc.wantID, tc.wantName)
			}
			if msg.ID != 1 || msg.ConversationID != 2 || msg.Content != "hi" {
				t.Fatalf("fields not carried over: %+v", msg)
			}
		})
	}
}

func TestNormalizeMessageTimestampShapes(t *testing.T) {
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		raw  string
	}{
		{"rfc3339", `"2025-06-01T12:00:00Z"`},
		{"unix seconds", `1748779200`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var wire proto.Message
			raw := `{"id":1,"sender":{"id":2,"username":"bob"},"content":"hi","created_at":` + tc.raw + `}`
			if err := json.Unmarshal([]byte(raw), &wire); err != nil {
				t.Fatalf("decode wire: %v", err)
			}
			msg, err := NormalizeMessage(wire)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if !msg.CreatedAt.Equal(want) {
				t.Fatalf("got %v, want %v", msg.CreatedAt, want)
			}
		})
	}
}

func TestNormalizeMessageRejectsBadSender(t *testing.T) {
	for _, raw := range []string{"", "[]", `"bob"`, `{"id":`} {
		_, err := NormalizeMessage(proto.Message{ID: 1, Sender: json.RawMessage(raw)})
		if err == nil {
			t.Fatalf("sender %q: expected error", raw)
		}
	}
}

func TestNormalizeEventUnknownSkipped(t *testing.T) {
	ev, err := normalizeEvent(proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: "reaction_added",
		Data:  json.RawMessage(`{"whatever":true}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected unknown event skipped, got %+v", ev)
	}
}

func TestNormalizeEventKinds(t *testing.T) {
	msgData, _ := json.Marshal(proto.Message{
		ID:             3,
		ConversationID: 1,
		Sender:         json.RawMessage(`{"id":2,"username":"bob"}`),
		Content:        "hey",
		CreatedAt:      proto.Timestamp{Time: baseTime},
	})
	ev, err := normalizeEvent(proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventMessage, Data: msgData})
	if err != nil {
		t.Fatalf("message event: %v", err)
	}
	if ev.Kind != chat.EventMessage || ev.Message == nil || ev.Message.ID != 3 {
		t.Fatalf("unexpected message event: %+v", ev)
	}

	typingData, _ := json.Marshal(proto.TypingEvent{ConversationID: 1, UserID: 2, ExpiresAt: baseTime.Add(4 * time.Second)})
	ev, err = normalizeEvent(proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventTyping, Data: typingData})
	if err != nil {
		t.Fatalf("typing event: %v", err)
	}
	if ev.Kind != chat.EventTyping || ev.Typing == nil || ev.Typing.UserID != 2 {
		t.Fatalf("unexpected typing event: %+v", ev)
	}

	readData, _ := json.Marshal(proto.ReadEvent{ConversationID: 1, MessageID: 3, UserID: 2})
	ev, err = normalizeEvent(proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventRead, Data: readData})
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Kind != chat.EventRead || ev.Read == nil || ev.Read.MessageID != 3 {
		t.Fatalf("unexpected read event: %+v", ev)
	}
}

func TestNormalizeEventErrorEnvelope(t *testing.T) {
	_, err := normalizeEvent(proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: "unauthorized", Msg: "token expired"},
	})
	if err == nil {
		t.Fatal("expected error envelope surfaced")
	}
}
