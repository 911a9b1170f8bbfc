package client

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// ReadMarker persists read receipts.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID int64) error
}

// Indicator is the delivery state shown next to a message the local
// user authored. Messages from the other participant show nothing.
type Indicator int

const (
	// IndicatorNone: the message was authored by the other participant.
	IndicatorNone Indicator = iota
	// IndicatorSent: persisted but not yet seen by the other participant.
	IndicatorSent
	// IndicatorSeen: the other participant is in the read set.
	IndicatorSeen
)

func (i Indicator) String() string {
	switch i {
	case IndicatorSent:
		return "sent"
	case IndicatorSeen:
		return "seen"
	default:
		return ""
	}
}

// IndicatorFor applies the rendering rule: a message authored by selfID
// shows "seen" iff otherID is in its read set, otherwise "sent"; messages
// from the other participant show no indicator. Pending entries count as
// not yet sent.
func IndicatorFor(entry Entry, selfID, otherID int64) Indicator {
	if entry.SenderID != selfID {
		return IndicatorNone
	}
	if !entry.Pending && entry.SeenBy(otherID) {
		return IndicatorSeen
	}
	return IndicatorSent
}

// Receipts propagates read receipts for messages the local user has seen
// on screen. MarkRead on the server is idempotent, but each message is
// still only reported once per view to avoid chatter.
type Receipts struct {
	marker ReadMarker
	selfID int64
	log    zerolog.Logger

	mu     sync.Mutex
	marked map[int64]struct{}
}

// NewReceipts creates a propagator for one open conversation view.
func NewReceipts(marker ReadMarker, selfID int64, logger *zerolog.Logger) *Receipts {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Receipts{
		marker: marker,
		selfID: selfID,
		log:    l,
		marked: make(map[int64]struct{}),
	}
}

// Observe reports confirmed messages from the other participant as read.
// Best-effort: failures are logged and the message stays eligible for a
// later attempt.
func (r *Receipts) Observe(ctx context.Context, entries []Entry) {
	for _, entry := range entries {
		if entry.Pending || entry.SenderID == r.selfID || entry.SeenBy(r.selfID) {
			continue
		}

		r.mu.Lock()
		_, done := r.marked[entry.ID]
		if !done {
			r.marked[entry.ID] = struct{}{}
		}
		r.mu.Unlock()
		if done {
			continue
		}

		if err := r.marker.MarkRead(ctx, entry.ID); err != nil {
			r.log.Debug().Err(err).Int64("message_id", entry.ID).Msg("mark read failed")
			r.mu.Lock()
			delete(r.marked, entry.ID)
			r.mu.Unlock()
		}
	}
}
