package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/proto"
)

const channelPingInterval = 25 * time.Second

// Channel is a live update feed for one conversation. Events ends when
// the channel closes; Err distinguishes failure from normal completion.
type Channel interface {
	Events() <-chan chat.Event
	Err() error
	Close()
}

// Dialer opens live update channels.
type Dialer interface {
	Dial(ctx context.Context, conversationID int64) (Channel, error)
}

// WSDialer opens live update channels over WebSocket.
type WSDialer struct {
	base  string // ws:// or http:// base URL of the server
	token string
}

// NewWSDialer creates a dialer for the given server base URL and token.
func NewWSDialer(base, token string) *WSDialer {
	return &WSDialer{base: base, token: token}
}

// Dial subscribes to a conversation's live update channel.
func (d *WSDialer) Dial(ctx context.Context, conversationID int64) (Channel, error) {
	wsBase := strings.Replace(d.base, "http", "ws", 1)
	addr := fmt.Sprintf("%s/ws/conversations/%d?token=%s", wsBase, conversationID, url.QueryEscape(d.token))

	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: fmt.Sprintf("dial live channel: %v", err)}
	}

	chCtx, cancel := context.WithCancel(context.Background())
	ch := &wsChannel{
		conn:   conn,
		events: make(chan chat.Event, 16),
		cancel: cancel,
	}
	go ch.readLoop(chCtx)
	go ch.pingLoop(chCtx)
	return ch, nil
}

type wsChannel struct {
	conn   *websocket.Conn
	events chan chat.Event
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func (c *wsChannel) Events() <-chan chat.Event { return c.events }

func (c *wsChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *wsChannel) Close() {
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}

func (c *wsChannel) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *wsChannel) readLoop(ctx context.Context) {
	defer close(c.events)
	defer c.cancel()

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, c.conn, &outbound); err != nil {
			if ctx.Err() == nil && !isNormalClose(err) {
				c.fail(err)
			}
			return
		}

		event, err := normalizeEvent(outbound)
		if err != nil {
			c.fail(err)
			return
		}
		if event == nil {
			continue // unknown event name, skip
		}

		select {
		case c.events <- *event:
		case <-ctx.Done():
			return
		}
	}
}

// pingLoop doubles as liveness detection: if the server stops answering
// pings the read loop unblocks with an error and the synchronizer
// degrades instead of waiting forever on a dead connection.
func (c *wsChannel) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(channelPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					c.fail(fmt.Errorf("liveness ping: %w", err))
				}
				c.conn.Close(websocket.StatusAbnormalClosure, "ping timeout")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
