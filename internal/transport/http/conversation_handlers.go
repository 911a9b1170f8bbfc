package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/store"
)

// ChatHandlers provides HTTP handlers for conversation endpoints.
type ChatHandlers struct {
	store    store.Store
	hub      *chat.Hub
	typing   *chat.TypingRegistry
	pageSize int
	log      *zerolog.Logger
}

// NewChatHandlers creates a new conversation handlers instance.
func NewChatHandlers(st store.Store, hub *chat.Hub, typing *chat.TypingRegistry, pageSize int, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		store:    st,
		hub:      hub,
		typing:   typing,
		pageSize: pageSize,
		log:      logger,
	}
}

// CreateConversationRequest represents the create conversation request body.
type CreateConversationRequest struct {
	ParticipantID int64  `json:"participant_id" binding:"required"`
	GigID         *int64 `json:"gig_id"`
}

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ID             int64   `json:"id"`
	ParticipantIDs []int64 `json:"participant_ids"`
	GigID          *int64  `json:"gig_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
	LastMessageAt  string  `json:"last_message_at"`
}

func conversationResponse(conv *chat.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:             conv.ID,
		ParticipantIDs: conv.ParticipantIDs,
		GigID:          conv.GigID,
		CreatedAt:      conv.CreatedAt.Format(time.RFC3339),
		LastMessageAt:  conv.LastMessageAt.Format(time.RFC3339),
	}
}

// CreateConversation starts a conversation with another participant.
// POST /api/conversations
func (h *ChatHandlers) CreateConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create conversation request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	conv, err := h.store.CreateConversation(c.Request.Context(), []int64{userID, req.ParticipantID}, req.GigID)
	if err != nil {
		var domainErr *chat.Error
		if errors.As(err, &domainErr) && domainErr.Code == chat.ErrCodeValidation {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: domainErr.Message})
			return
		}
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to create conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, conversationResponse(conv))
}

// ListConversations lists the caller's conversations.
// GET /api/conversations
func (h *ChatHandlers) ListConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	conversations, err := h.store.ListConversations(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to list conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		response = append(response, conversationResponse(conv))
	}
	c.JSON(http.StatusOK, response)
}

// requireParticipant resolves the :id route param and checks the caller may
// access the conversation. Writes the error response itself on failure.
func (h *ChatHandlers) requireParticipant(c *gin.Context) (conversationID, userID int64, ok bool) {
	userID, hasUser := currentUserID(c)
	if !hasUser {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return 0, 0, false
	}

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id"})
		return 0, 0, false
	}

	if _, err := h.store.GetConversation(c.Request.Context(), conversationID); err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
			return 0, 0, false
		}
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return 0, 0, false
	}

	member, err := h.store.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to check participant")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return 0, 0, false
	}
	if !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant"})
		return 0, 0, false
	}

	return conversationID, userID, true
}
