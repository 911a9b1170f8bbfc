package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/proto"
)

// HistoryPage is one page of conversation history in chronological order.
type HistoryPage struct {
	Messages   []chat.Message
	HasMore    bool
	NextCursor string
}

// REST talks to the conversation API. It performs no internal retries;
// transient failures are classified and surfaced to the caller.
type REST struct {
	base  string
	token string
	http  *http.Client
}

// NewREST creates an API client for the given base URL (e.g. http://host:8080).
func NewREST(base string) *REST {
	return &REST{
		base: base,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (c *REST) SetToken(token string) { c.token = token }

// Token returns the current bearer token.
func (c *REST) Token() string { return c.token }

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Register creates an account and stores the returned token on the client.
func (c *REST) Register(ctx context.Context, username, password string) error {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", authRequest{username, password}, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// Login authenticates and stores the returned token on the client.
func (c *REST) Login(ctx context.Context, username, password string) error {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", authRequest{username, password}, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

type wireConversation struct {
	ID             int64   `json:"id"`
	ParticipantIDs []int64 `json:"participant_ids"`
	GigID          *int64  `json:"gig_id,omitempty"`
	LastMessageAt  string  `json:"last_message_at"`
}

// Conversations lists the caller's conversations.
func (c *REST) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	var wire []wireConversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &wire); err != nil {
		return nil, err
	}
	conversations := make([]chat.Conversation, 0, len(wire))
	for _, w := range wire {
		conv := chat.Conversation{
			ID:             w.ID,
			ParticipantIDs: w.ParticipantIDs,
			GigID:          w.GigID,
		}
		if t, err := time.Parse(time.RFC3339, w.LastMessageAt); err == nil {
			conv.LastMessageAt = t
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

type historyResponse struct {
	Messages   []proto.Message `json:"messages"`
	HasMore    bool            `json:"has_more"`
	NextCursor string          `json:"next_cursor"`
}

// History pulls a page of messages older than the cursor; an empty cursor
// returns the most recent page.
func (c *REST) History(ctx context.Context, conversationID int64, cursor string) (*HistoryPage, error) {
	path := fmt.Sprintf("/api/conversations/%d/messages", conversationID)
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}

	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	page := &HistoryPage{
		HasMore:    resp.HasMore,
		NextCursor: resp.NextCursor,
		Messages:   make([]chat.Message, 0, len(resp.Messages)),
	}
	for _, wire := range resp.Messages {
		msg, err := NormalizeMessage(wire)
		if err != nil {
			return nil, fmt.Errorf("normalize history message: %w", err)
		}
		page.Messages = append(page.Messages, msg)
	}
	return page, nil
}

type sendRequest struct {
	Content string `json:"content"`
}

// Send persists a message and returns the canonical server copy.
func (c *REST) Send(ctx context.Context, conversationID int64, content string) (*chat.Message, error) {
	var wire proto.Message
	path := fmt.Sprintf("/api/conversations/%d/messages", conversationID)
	if err := c.do(ctx, http.MethodPost, path, sendRequest{Content: content}, &wire); err != nil {
		return nil, err
	}
	msg, err := NormalizeMessage(wire)
	if err != nil {
		return nil, fmt.Errorf("normalize sent message: %w", err)
	}
	return &msg, nil
}

// Typing sends a fire-and-forget composing ping.
func (c *REST) Typing(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/api/conversations/%d/typing", conversationID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// PollTyping returns the ids of users currently composing.
func (c *REST) PollTyping(ctx context.Context, conversationID int64) ([]int64, error) {
	var resp struct {
		Typing []int64 `json:"typing"`
	}
	path := fmt.Sprintf("/api/conversations/%d/typing", conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Typing, nil
}

// MarkRead adds the caller to a message's read set. Idempotent.
func (c *REST) MarkRead(ctx context.Context, messageID int64) error {
	path := fmt.Sprintf("/api/messages/%d/read", messageID)
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func (c *REST) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{
			Kind:    kindFromStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: apiErr.Error,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
