package store

import (
	"context"
	"time"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
)

// User represents a registered marketplace user.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Page is one slice of conversation history in chronological order.
type Page struct {
	Messages   []*chat.Message
	HasMore    bool
	NextCursor string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ConversationStore handles conversation persistence.
type ConversationStore interface {
	// CreateConversation creates a conversation between exactly two participants.
	CreateConversation(ctx context.Context, participantIDs []int64, gigID *int64) (*chat.Conversation, error)

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, id int64) (*chat.Conversation, error)

	// ListConversations lists conversations the user participates in,
	// most recently active first.
	ListConversations(ctx context.Context, userID int64) ([]*chat.Conversation, error)

	// IsParticipant checks whether the user belongs to the conversation.
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message, assigns its id and server timestamp,
	// and bumps the conversation's last_message_at.
	SaveMessage(ctx context.Context, msg *chat.Message) error

	// GetMessage retrieves a message with its read set.
	GetMessage(ctx context.Context, id int64) (*chat.Message, error)

	// ListMessages returns a page of messages older than the cursor
	// (newest page when cursor is nil), in chronological order.
	ListMessages(ctx context.Context, conversationID int64, limit int, before *Cursor) (*Page, error)

	// MarkRead adds userID to the message's read set. Idempotent: marking
	// an already-read message reports added=false with no error.
	MarkRead(ctx context.Context, messageID, userID int64) (msg *chat.Message, added bool, err error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ConversationStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
