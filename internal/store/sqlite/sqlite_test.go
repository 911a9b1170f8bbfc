package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func createUsers(t *testing.T, st *SQLiteStore, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		u, err := st.CreateUser(context.Background(), name, "hash")
		if err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		ids = append(ids, u.ID)
	}
	return ids
}

func saveAt(t *testing.T, st *SQLiteStore, convID, senderID int64, content string, at time.Time) *chat.Message {
	t.Helper()
	msg := &chat.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
	}
	if err := st.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("save message: %v", err)
	}
	return msg
}

func TestCreateConversationValidation(t *testing.T) {
	st := newTestStore(t)
	ids := createUsers(t, st, "alice", "bob")

	cases := [][]int64{
		{ids[0]},
		{ids[0], ids[0]},
		{ids[0], ids[1], ids[1]},
		nil,
	}
	for _, participants := range cases {
		if _, err := st.CreateConversation(context.Background(), participants, nil); err == nil {
			t.Fatalf("participants %v: expected validation error", participants)
		}
	}
}

func TestConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ids := createUsers(t, st, "alice", "bob", "carol")

	gigID := int64(77)
	conv, err := st.CreateConversation(ctx, []int64{ids[0], ids[1]}, &gigID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	if len(conv.ParticipantIDs) != 2 {
		t.Fatalf("expected 2 participants, got %v", conv.ParticipantIDs)
	}
	if conv.GigID == nil || *conv.GigID != 77 {
		t.Fatalf("gig link lost: %+v", conv.GigID)
	}

	for _, tc := range []struct {
		userID int64
		want   bool
	}{
		{ids[0], true}, {ids[1], true}, {ids[2], false},
	} {
		got, err := st.IsParticipant(ctx, conv.ID, tc.userID)
		if err != nil {
			t.Fatalf("is participant: %v", err)
		}
		if got != tc.want {
			t.Fatalf("user %d: participant=%v, want %v", tc.userID, got, tc.want)
		}
	}

	if _, err := st.GetConversation(ctx, 9999); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestListConversationsOrderedByActivity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ids := createUsers(t, st, "alice", "bob", "carol")

	first, err := st.CreateConversation(ctx, []int64{ids[0], ids[1]}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := st.CreateConversation(ctx, []int64{ids[0], ids[2]}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A new message makes the older conversation the most recently active.
	saveAt(t, st, first.ID, ids[1], "ping", time.Now().UTC().Add(time.Hour))

	list, err := st.ListConversations(ctx, ids[0])
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("expected activity order [%d %d], got [%d %d]",
			first.ID, second.ID, list[0].ID, list[1].ID)
	}
}

func TestListMessagesPagination(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ids := createUsers(t, st, "alice", "bob")

	conv, err := st.CreateConversation(ctx, []int64{ids[0], ids[1]}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var all []int64
	for i := 0; i < 5; i++ {
		msg := saveAt(t, st, conv.ID, ids[i%2], "m", base.Add(time.Duration(i)*time.Second))
		all = append(all, msg.ID)
	}

	// Newest page: chronological within the page, oldest two not included.
	page, err := st.ListMessages(ctx, conv.ID, 2, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Messages) != 2 || !page.HasMore || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	if page.Messages[0].ID != all[3] || page.Messages[1].ID != all[4] {
		t.Fatalf("expected [%d %d], got [%d %d]",
			all[3], all[4], page.Messages[0].ID, page.Messages[1].ID)
	}

	// Walk the cursor back to the beginning, collecting every id once.
	seen := map[int64]int{all[3]: 1, all[4]: 1}
	cursor := page.NextCursor
	for cursor != "" {
		c, err := store.DecodeCursor(cursor)
		if err != nil {
			t.Fatalf("decode cursor: %v", err)
		}
		page, err = st.ListMessages(ctx, conv.ID, 2, c)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, m := range page.Messages {
			seen[m.ID]++
		}
		cursor = page.NextCursor
	}
	if len(seen) != 5 {
		t.Fatalf("expected all 5 messages across pages, got %v", seen)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("message %d appeared %d times", id, n)
		}
	}
}

func TestListMessagesTimestampTieBrokenByID(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ids := createUsers(t, st, "alice", "bob")

	conv, err := st.CreateConversation(ctx, []int64{ids[0], ids[1]}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := saveAt(t, st, conv.ID, ids[0], "a", at)
	second := saveAt(t, st, conv.ID, ids[1], "b", at)

	page, err := st.ListMessages(ctx, conv.ID, 10, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Messages) != 2 || page.HasMore {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Messages[0].ID != first.ID || page.Messages[1].ID != second.ID {
		t.Fatalf("id must break the tie: got [%d %d]", page.Messages[0].ID, page.Messages[1].ID)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ids := createUsers(t, st, "alice", "bob")

	conv, err := st.CreateConversation(ctx, []int64{ids[0], ids[1]}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	msg := saveAt(t, st, conv.ID, ids[0], "hi", time.Now().UTC())

	got, added, err := st.MarkRead(ctx, msg.ID, ids[1])
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !added {
		t.Fatal("first mark must report growth")
	}
	if len(got.ReadBy) != 1 || got.ReadBy[0] != ids[1] {
		t.Fatalf("unexpected read set: %v", got.ReadBy)
	}

	got, added, err = st.MarkRead(ctx, msg.ID, ids[1])
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if added {
		t.Fatal("repeated mark must be a no-op")
	}
	if len(got.ReadBy) != 1 {
		t.Fatalf("read set must not grow on repeat: %v", got.ReadBy)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.GetMessage(context.Background(), 12345); !errors.Is(err, chat.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestSaveMessageBumpsLastMessageAt(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ids := createUsers(t, st, "alice", "bob")

	conv, err := st.CreateConversation(ctx, []int64{ids[0], ids[1]}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	at := conv.LastMessageAt.Add(time.Hour)
	saveAt(t, st, conv.ID, ids[0], "hi", at)

	after, err := st.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !after.LastMessageAt.Equal(at) {
		t.Fatalf("expected last_message_at %v, got %v", at, after.LastMessageAt)
	}
}

func TestSaveMessagePreservesAttachments(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ids := createUsers(t, st, "alice", "bob")

	conv, err := st.CreateConversation(ctx, []int64{ids[0], ids[1]}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	msg := &chat.Message{
		ConversationID: conv.ID,
		SenderID:       ids[0],
		Content:        "see attached",
		Attachments:    []byte(`[{"url":"https://cdn.example/f.png","kind":"image"}]`),
		CreatedAt:      time.Now().UTC(),
	}
	if err := st.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Attachments) != string(msg.Attachments) {
		t.Fatalf("attachments lost: %s", got.Attachments)
	}
	if got.SenderName != "alice" {
		t.Fatalf("sender name not joined: %q", got.SenderName)
	}
}
