package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before schema setup
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== ConversationStore implementation ====

// CreateConversation creates a conversation between exactly two participants.
func (s *SQLiteStore) CreateConversation(ctx context.Context, participantIDs []int64, gigID *int64) (*chat.Conversation, error) {
	if len(participantIDs) != 2 || participantIDs[0] == participantIDs[1] {
		return nil, chat.NewError(chat.ErrCodeValidation, "conversation requires two distinct participants")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (gig_id, created_at, last_message_at)
		VALUES (?, ?, ?)
	`, gigID, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	for _, uid := range participantIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES (?, ?)
		`, id, uid); err != nil {
			return nil, fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetConversation(ctx, id)
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*chat.Conversation, error) {
	query := `
		SELECT id, gig_id, created_at, last_message_at
		FROM conversations
		WHERE id = ?
	`
	var conv chat.Conversation
	var gigID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&gigID,
		&conv.CreatedAt,
		&conv.LastMessageAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.ErrConversationNotFound
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	if gigID.Valid {
		conv.GigID = &gigID.Int64
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY user_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		conv.ParticipantIDs = append(conv.ParticipantIDs, uid)
	}

	return &conv, rows.Err()
}

// ListConversations lists conversations the user participates in.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]*chat.Conversation, error) {
	query := `
		SELECT c.id
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = ?
		ORDER BY c.last_message_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conversations := make([]*chat.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

// IsParticipant checks whether the user belongs to the conversation.
func (s *SQLiteStore) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `
		SELECT 1 FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`
	var one int
	err := s.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query participant: %w", err)
	}
	return true, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and bumps conversation activity.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *chat.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var attachments any
	if len(msg.Attachments) > 0 {
		attachments = string(msg.Attachments)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, content, attachments, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ConversationID, msg.SenderID, msg.Content, attachments, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = ? WHERE id = ?
	`, msg.CreatedAt, msg.ConversationID); err != nil {
		return fmt.Errorf("bump conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	msg.ID = id
	return nil
}

const messageColumns = `
	m.id, m.conversation_id, m.sender_id, u.username, m.content,
	COALESCE(m.attachments, ''), m.created_at,
	COALESCE((
		SELECT GROUP_CONCAT(r.user_id)
		FROM message_reads r
		WHERE r.message_id = m.id
	), '')
`

// GetMessage retrieves a message with its read set.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*chat.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.ErrMessageNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// ListMessages retrieves a page of conversation history.
// Keyset pagination on (created_at, id): with a cursor, only messages
// strictly older than the cursor position are returned.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64, limit int, before *store.Cursor) (*store.Page, error) {
	var query string
	var args []any

	if before != nil {
		query = `
			SELECT ` + messageColumns + `
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.conversation_id = ?
			  AND (m.created_at < ? OR (m.created_at = ? AND m.id < ?))
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?
		`
		args = []any{conversationID, before.CreatedAt, before.CreatedAt, before.ID, limit + 1}
	} else {
		query = `
			SELECT ` + messageColumns + `
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.conversation_id = ?
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?
		`
		args = []any{conversationID, limit + 1}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*chat.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &store.Page{}
	if len(messages) > limit {
		page.HasMore = true
		messages = messages[:limit]
	}

	// Reverse to get chronological order
	for i := 0; i < len(messages)/2; i++ {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}
	page.Messages = messages

	if page.HasMore && len(messages) > 0 {
		oldest := messages[0]
		cursor, err := store.EncodeCursor(store.Cursor{CreatedAt: oldest.CreatedAt, ID: oldest.ID})
		if err != nil {
			return nil, err
		}
		page.NextCursor = cursor
	}

	return page, nil
}

// MarkRead adds userID to the message's read set. Idempotent.
func (s *SQLiteStore) MarkRead(ctx context.Context, messageID, userID int64) (*chat.Message, bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_reads (message_id, user_id)
		VALUES (?, ?)
	`, messageID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("insert read receipt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	msg, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	return msg, affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*chat.Message, error) {
	var msg chat.Message
	var attachments, readBy string
	if err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.Content,
		&attachments,
		&msg.CreatedAt,
		&readBy,
	); err != nil {
		return nil, err
	}
	if attachments != "" {
		msg.Attachments = []byte(attachments)
	}
	if readBy != "" {
		for _, part := range strings.Split(readBy, ",") {
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse read_by %q: %w", part, err)
			}
			msg.ReadBy = append(msg.ReadBy, id)
		}
		sort.Slice(msg.ReadBy, func(i, j int) bool { return msg.ReadBy[i] < msg.ReadBy[j] })
	}
	return &msg, nil
}
