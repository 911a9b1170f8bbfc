package client

import (
	"sort"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
)

// Entry is one row of the local timeline: a message plus a pending flag
// for optimistic sends not yet confirmed by the server.
type Entry struct {
	chat.Message
	Pending bool
	LocalID string
}

// Timeline is the merged, deduplicated view of a conversation built from
// history pages, live channel events and optimistic local sends. It is
// owned by a single Synchronizer and is not safe for concurrent use.
//
// Two invariants hold after every mutation:
//   - at most one entry exists per server-assigned message id
//   - confirmed entries are sorted by (created_at, id); pending entries
//     follow all confirmed ones in submission order
type Timeline struct {
	entries []Entry
	seq     int64 // submission order for pending entries
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Len returns the number of entries, pending included.
func (t *Timeline) Len() int { return len(t.entries) }

// Entries returns a copy of the timeline in display order.
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Merge inserts a confirmed message with at-most-once semantics keyed by
// server id. A duplicate delivery (history + channel + send response in
// any interleaving) only unions the read set of the existing entry.
// Reports whether a new entry was inserted.
func (t *Timeline) Merge(msg chat.Message) bool {
	if i := t.indexByID(msg.ID); i >= 0 {
		for _, reader := range msg.ReadBy {
			t.entries[i].AddReader(reader)
		}
		return false
	}

	t.entries = append(t.entries, Entry{Message: msg})
	t.resort()
	return true
}

// AddPending appends an optimistic entry for a local send. It carries no
// server id yet; localID ties it to the eventual send result.
func (t *Timeline) AddPending(localID string, msg chat.Message) {
	t.seq++
	t.entries = append(t.entries, Entry{
		Message: msg,
		Pending: true,
		LocalID: localID,
	})
	// Pending entries always sort last; appending keeps order.
}

// Reconcile resolves an optimistic entry against the persisted message
// from the send response. If the canonical copy already arrived through
// the live channel, the placeholder is simply dropped.
// Reports whether the message is new to the timeline.
func (t *Timeline) Reconcile(localID string, msg chat.Message) bool {
	t.DropPending(localID)
	return t.Merge(msg)
}

// DropPending removes an optimistic entry whose send failed or was
// superseded. Unknown localIDs are ignored.
func (t *Timeline) DropPending(localID string) {
	for i := range t.entries {
		if t.entries[i].Pending && t.entries[i].LocalID == localID {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// MarkRead records a read receipt against a confirmed entry.
// Reports whether the read set actually grew.
func (t *Timeline) MarkRead(messageID, userID int64) bool {
	i := t.indexByID(messageID)
	if i < 0 {
		return false
	}
	return t.entries[i].AddReader(userID)
}

// Get returns the entry for a server message id, if present.
func (t *Timeline) Get(messageID int64) (Entry, bool) {
	if i := t.indexByID(messageID); i >= 0 {
		return t.entries[i], true
	}
	return Entry{}, false
}

func (t *Timeline) indexByID(messageID int64) int {
	for i := range t.entries {
		if !t.entries[i].Pending && t.entries[i].ID == messageID {
			return i
		}
	}
	return -1
}

func (t *Timeline) resort() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		a, b := &t.entries[i], &t.entries[j]
		if a.Pending != b.Pending {
			// A pending entry has no server timestamp yet; it sorts
			// after every confirmed entry.
			return !a.Pending
		}
		if a.Pending {
			return false // stable sort keeps submission order
		}
		return a.Message.Less(&b.Message)
	})
}
