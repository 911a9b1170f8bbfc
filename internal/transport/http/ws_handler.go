package http

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/profullstack/ugig.net-sub000/internal/metrics"
)

const wsPingInterval = 20 * time.Second

// WSHandlers upgrades conversation viewers to a live update channel.
// The channel is one-directional: the server pushes message, typing and
// read events; mutations go through the REST API.
type WSHandlers struct {
	chat *ChatHandlers
	log  *zerolog.Logger
}

// NewWSHandlers builds a new WebSocket handlers instance.
func NewWSHandlers(chatHandlers *ChatHandlers, logger *zerolog.Logger) *WSHandlers {
	return &WSHandlers{chat: chatHandlers, log: logger}
}

// Subscribe attaches the caller to a conversation's live update channel.
// GET /ws/conversations/:id
func (h *WSHandlers) Subscribe(c *gin.Context) {
	conversationID, userID, ok := h.chat.requireParticipant(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sub := h.chat.hub.Subscribe(conversationID, userID)
	defer h.chat.hub.Unsubscribe(conversationID, sub)

	metrics.LiveSubscribers.Inc()
	defer metrics.LiveSubscribers.Dec()

	h.log.Debug().
		Int64("conversation_id", conversationID).
		Int64("user_id", userID).
		Msg("live channel opened")

	// The client never writes application frames; CloseRead services
	// control frames and cancels the context when the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())

	pings := time.NewTicker(wsPingInterval)
	defer pings.Stop()

	for {
		select {
		case event := <-sub.Events:
			outbound, err := outboundFromEvent(event)
			if err != nil {
				h.log.Error().Err(err).Msg("encode ws event")
				continue
			}
			if err := wsjson.Write(ctx, conn, outbound); err != nil {
				h.closeWith(conn, err, conversationID)
				return
			}
		case <-pings.C:
			if err := conn.Ping(ctx); err != nil {
				h.closeWith(conn, err, conversationID)
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "closing")
			return
		}
	}
}

func (h *WSHandlers) closeWith(conn *websocket.Conn, err error, conversationID int64) {
	if errors.Is(err, context.Canceled) {
		conn.Close(websocket.StatusNormalClosure, "closing")
		return
	}
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		conn.Close(websocket.StatusNormalClosure, "closing")
		return
	}
	h.log.Warn().Err(err).Int64("conversation_id", conversationID).Msg("live channel closed with error")
	conn.Close(websocket.StatusInternalError, "write failed")
}
