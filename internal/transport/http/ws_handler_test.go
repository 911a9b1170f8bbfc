package http

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/profullstack/ugig.net-sub000/internal/proto"
)

func dialWS(t *testing.T, ts *testServer, token string, convID int64) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) +
		fmt.Sprintf("/ws/conversations/%d?token=%s", convID, url.QueryEscape(token))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })

	// The handler subscribes shortly after the handshake; wait until the
	// subscription is live so nothing published is dropped before it.
	deadline := time.Now().Add(2 * time.Second)
	for ts.hub.Subscribers(convID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("ws subscription never became live")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestWSSubscribeReceivesEvents(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice") // id 1
	bob := ts.register(t, "bob")     // id 2
	convID := ts.createConversation(t, alice, 2)

	conn := dialWS(t, ts, bob, convID)

	msgID := ts.send(t, alice, convID, "hello over the wire")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var outbound proto.Outbound
	if err := wsjson.Read(ctx, conn, &outbound); err != nil {
		t.Fatalf("read ws event: %v", err)
	}
	if outbound.Type != proto.OutboundTypeEvent || outbound.Event != proto.EventMessage {
		t.Fatalf("unexpected envelope: %+v", outbound)
	}

	var wire proto.Message
	if err := json.Unmarshal(outbound.Data, &wire); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if wire.ID != msgID || wire.Content != "hello over the wire" {
		t.Fatalf("unexpected message: %+v", wire)
	}
}

func TestWSSubscribeTypingAndReadEvents(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice") // id 1
	bob := ts.register(t, "bob")     // id 2
	convID := ts.createConversation(t, alice, 2)
	msgID := ts.send(t, alice, convID, "see this")

	conn := dialWS(t, ts, alice, convID)

	if status := ts.doJSON(t, stdhttp.MethodPost, fmt.Sprintf("/api/conversations/%d/typing", convID), bob, nil); status != stdhttp.StatusAccepted {
		t.Fatalf("typing ping: status %d", status)
	}
	if status := ts.doJSON(t, stdhttp.MethodPut, fmt.Sprintf("/api/messages/%d/read", msgID), bob, nil); status != stdhttp.StatusNoContent {
		t.Fatalf("mark read: status %d", status)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var typing proto.Outbound
	if err := wsjson.Read(ctx, conn, &typing); err != nil {
		t.Fatalf("read typing event: %v", err)
	}
	if typing.Event != proto.EventTyping {
		t.Fatalf("expected typing event first, got %+v", typing)
	}

	var read proto.Outbound
	if err := wsjson.Read(ctx, conn, &read); err != nil {
		t.Fatalf("read receipt event: %v", err)
	}
	if read.Event != proto.EventRead {
		t.Fatalf("expected read event, got %+v", read)
	}
	var payload proto.ReadEvent
	if err := json.Unmarshal(read.Data, &payload); err != nil {
		t.Fatalf("decode read payload: %v", err)
	}
	if payload.MessageID != msgID || payload.UserID != 2 {
		t.Fatalf("unexpected receipt: %+v", payload)
	}
}

func TestWSSubscribeRejectsNonParticipant(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice") // id 1
	ts.register(t, "bob")            // id 2
	carol := ts.register(t, "carol") // id 3
	convID := ts.createConversation(t, alice, 2)

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) +
		fmt.Sprintf("/ws/conversations/%d?token=%s", convID, url.QueryEscape(carol))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err == nil {
		conn.Close(websocket.StatusNormalClosure, "unexpected")
		t.Fatal("expected dial rejection for non-participant")
	}
	if resp != nil && resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
