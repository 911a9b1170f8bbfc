package client

import (
	"testing"
	"time"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func confirmed(id int64, sender int64, content string, offset time.Duration) chat.Message {
	return chat.Message{
		ID:             id,
		ConversationID: 1,
		SenderID:       sender,
		Content:        content,
		CreatedAt:      baseTime.Add(offset),
	}
}

func ids(entries []Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestTimelineDedupAcrossInterleavings(t *testing.T) {
	msg := confirmed(7, 1, "hello", 0)

	// The same message delivered via history, live channel and send
	// response, in every order.
	orders := [][]string{
		{"history", "channel", "send"},
		{"history", "send", "channel"},
		{"channel", "history", "send"},
		{"channel", "send", "history"},
		{"send", "history", "channel"},
		{"send", "channel", "history"},
	}

	for _, order := range orders {
		tl := NewTimeline()
		for _, source := range order {
			if source == "send" {
				tl.AddPending("local-1", confirmed(0, 1, "hello", 0))
				tl.Reconcile("local-1", msg)
			} else {
				tl.Merge(msg)
			}
		}
		if tl.Len() != 1 {
			t.Fatalf("order %v: expected exactly one entry, got %d", order, tl.Len())
		}
		entry := tl.Entries()[0]
		if entry.Pending || entry.ID != 7 {
			t.Fatalf("order %v: unexpected entry %+v", order, entry)
		}
	}
}

func TestTimelineCanonicalOrdering(t *testing.T) {
	tl := NewTimeline()

	// Arrival order deliberately scrambled; same timestamp for 3 and 4
	// to exercise the id tie-break.
	tl.Merge(confirmed(4, 2, "d", 2*time.Second))
	tl.Merge(confirmed(1, 1, "a", 0))
	tl.Merge(confirmed(3, 1, "c", 2*time.Second))
	tl.Merge(confirmed(2, 2, "b", time.Second))

	got := ids(tl.Entries())
	want := []int64{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestTimelinePendingSortsLast(t *testing.T) {
	tl := NewTimeline()
	tl.Merge(confirmed(1, 1, "a", 0))
	tl.AddPending("p1", chat.Message{SenderID: 1, Content: "draft", CreatedAt: baseTime.Add(time.Minute)})
	// A confirmed message arriving after the pending entry still sorts
	// before it.
	tl.Merge(confirmed(2, 2, "b", 2*time.Minute))

	entries := tl.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != 1 || entries[1].ID != 2 {
		t.Fatalf("confirmed entries out of order: %v", ids(entries))
	}
	if !entries[2].Pending {
		t.Fatalf("pending entry should sort last, got %+v", entries[2])
	}
}

func TestTimelinePendingReconciliation(t *testing.T) {
	tl := NewTimeline()
	tl.AddPending("local-1", chat.Message{SenderID: 1, Content: "Hello", CreatedAt: baseTime})

	if tl.Len() != 1 || !tl.Entries()[0].Pending {
		t.Fatalf("expected one pending entry, got %+v", tl.Entries())
	}

	tl.Reconcile("local-1", confirmed(101, 1, "Hello", 0))

	entries := tl.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry after reconcile, got %d", len(entries))
	}
	if entries[0].Pending || entries[0].ID != 101 || entries[0].Content != "Hello" {
		t.Fatalf("unexpected reconciled entry %+v", entries[0])
	}
}

func TestTimelineReconcileAfterChannelRecapture(t *testing.T) {
	tl := NewTimeline()
	tl.AddPending("local-1", chat.Message{SenderID: 1, Content: "Hello", CreatedAt: baseTime})

	// Canonical copy arrives first through the live channel.
	tl.Merge(confirmed(101, 1, "Hello", 0))
	if tl.Len() != 2 {
		t.Fatalf("expected pending + confirmed before reconcile, got %d", tl.Len())
	}

	// Send response reconciles; placeholder is dropped, not duplicated.
	tl.Reconcile("local-1", confirmed(101, 1, "Hello", 0))
	if tl.Len() != 1 {
		t.Fatalf("expected exactly one entry, got %d", tl.Len())
	}
	if tl.Entries()[0].ID != 101 {
		t.Fatalf("unexpected entry %+v", tl.Entries()[0])
	}
}

func TestTimelineDropPending(t *testing.T) {
	tl := NewTimeline()
	tl.AddPending("local-1", chat.Message{SenderID: 1, Content: "doomed"})
	tl.DropPending("local-1")
	if tl.Len() != 0 {
		t.Fatalf("expected empty timeline, got %d entries", tl.Len())
	}

	// Unknown local ids are ignored.
	tl.DropPending("never-existed")
}

func TestTimelineMarkReadIdempotent(t *testing.T) {
	tl := NewTimeline()
	tl.Merge(confirmed(1, 1, "a", 0))

	if !tl.MarkRead(1, 2) {
		t.Fatal("first mark should grow the read set")
	}
	if tl.MarkRead(1, 2) {
		t.Fatal("second mark should be a no-op")
	}
	entry, ok := tl.Get(1)
	if !ok || len(entry.ReadBy) != 1 || entry.ReadBy[0] != 2 {
		t.Fatalf("unexpected read set %+v", entry.ReadBy)
	}

	// The sender never needs an explicit receipt for their own message.
	if tl.MarkRead(1, 1) {
		t.Fatal("sender receipt should be a no-op")
	}
}

func TestTimelineMergeUnionsReadSet(t *testing.T) {
	tl := NewTimeline()
	tl.Merge(confirmed(1, 1, "a", 0))

	dup := confirmed(1, 1, "a", 0)
	dup.ReadBy = []int64{2}
	if tl.Merge(dup) {
		t.Fatal("duplicate merge should not insert")
	}

	entry, _ := tl.Get(1)
	if !entry.SeenBy(2) {
		t.Fatal("duplicate delivery should still union the read set")
	}
}
