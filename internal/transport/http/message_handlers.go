package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/metrics"
	"github.com/profullstack/ugig.net-sub000/internal/proto"
	"github.com/profullstack/ugig.net-sub000/internal/store"
)

// HistoryResponse represents one page of conversation history.
type HistoryResponse struct {
	Messages   []proto.Message `json:"messages"`
	HasMore    bool            `json:"has_more"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Content     string `json:"content"`
	Attachments any    `json:"attachments,omitempty"`
}

// TypingResponse represents the polling fallback for typing presence.
type TypingResponse struct {
	Typing []int64 `json:"typing"`
}

// History returns a page of messages older than the cursor.
// GET /api/conversations/:id/messages?cursor=&limit=
func (h *ChatHandlers) History(c *gin.Context) {
	conversationID, _, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	cursor, err := store.DecodeCursor(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid cursor"})
		return
	}

	limit := h.pageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		if n < limit {
			limit = n
		}
	}

	page, err := h.store.ListMessages(c.Request.Context(), conversationID, limit, cursor)
	if err != nil {
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	messages := make([]proto.Message, 0, len(page.Messages))
	for _, msg := range page.Messages {
		messages = append(messages, messageToWire(msg))
	}
	c.JSON(http.StatusOK, HistoryResponse{
		Messages:   messages,
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	})
}

// SendMessage persists a message and fans it out to live subscribers.
// POST /api/conversations/:id/messages
func (h *ChatHandlers) SendMessage(c *gin.Context) {
	conversationID, userID, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content must not be empty"})
		return
	}

	username, _ := c.Get(ContextKeyUsername)
	msg := &chat.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		SenderName:     username.(string),
		Content:        content,
	}
	if req.Attachments != nil {
		raw, err := encodeAttachments(req.Attachments)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid attachments"})
			return
		}
		msg.Attachments = raw
	}

	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	metrics.MessagesSent.Inc()
	h.publish(conversationID, chat.Event{Kind: chat.EventMessage, Message: msg})

	c.JSON(http.StatusCreated, messageToWire(msg))
}

// Typing records a fire-and-forget composing ping.
// POST /api/conversations/:id/typing
func (h *ChatHandlers) Typing(c *gin.Context) {
	conversationID, userID, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	signal := h.typing.Ping(conversationID, userID)
	h.publish(conversationID, chat.Event{Kind: chat.EventTyping, Typing: &signal})

	c.Status(http.StatusAccepted)
}

// PollTyping returns users with an unexpired typing signal.
// GET /api/conversations/:id/typing
func (h *ChatHandlers) PollTyping(c *gin.Context) {
	conversationID, _, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	active := h.typing.Active(conversationID)
	if active == nil {
		active = []int64{}
	}
	c.JSON(http.StatusOK, TypingResponse{Typing: active})
}

// MarkRead adds the caller to a message's read set. Idempotent.
// PUT /api/messages/:id/read
func (h *ChatHandlers) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}

	msg, err := h.store.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
			return
		}
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("failed to load message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	member, err := h.store.IsParticipant(c.Request.Context(), msg.ConversationID, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("failed to check participant")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant"})
		return
	}

	// A sender implicitly sees their own messages; nothing to record.
	if msg.SenderID == userID {
		c.Status(http.StatusNoContent)
		return
	}

	_, added, err := h.store.MarkRead(c.Request.Context(), messageID, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("message_id", messageID).Msg("failed to mark read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if added {
		h.publish(msg.ConversationID, chat.Event{Kind: chat.EventRead, Read: &chat.ReadReceipt{
			ConversationID: msg.ConversationID,
			MessageID:      messageID,
			UserID:         userID,
		}})
	}

	c.Status(http.StatusNoContent)
}

func (h *ChatHandlers) publish(conversationID int64, ev chat.Event) {
	h.hub.Publish(conversationID, ev)
	switch ev.Kind {
	case chat.EventMessage:
		metrics.EventsBroadcast.WithLabelValues("message").Inc()
	case chat.EventTyping:
		metrics.EventsBroadcast.WithLabelValues("typing").Inc()
	case chat.EventRead:
		metrics.EventsBroadcast.WithLabelValues("read").Inc()
	}
}
