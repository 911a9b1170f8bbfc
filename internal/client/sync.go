package client

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/profullstack/ugig.net-sub000/internal/chat"
)

// State describes the live channel lifecycle as seen by the view layer.
type State int

const (
	// StateDisconnected is the initial state before Open.
	StateDisconnected State = iota
	// StateConnecting means a channel dial or retry is in progress.
	StateConnecting
	// StateConnected means live events are flowing.
	StateConnected
	// StateDegraded means the channel dropped; history remains available
	// and a reconnect is scheduled or awaiting a manual retry.
	StateDegraded
	// StateClosed is terminal: the conversation view was torn down.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Fetcher pulls pages of persisted history.
type Fetcher interface {
	History(ctx context.Context, conversationID int64, cursor string) (*HistoryPage, error)
}

// Options configures a Synchronizer.
type Options struct {
	Fetcher        Fetcher
	Dialer         Dialer
	ConversationID int64
	SelfID         int64
	Logger         *zerolog.Logger

	// Backoff for automatic reconnects. After MaxAutoRetries consecutive
	// failures the synchronizer stays degraded until Reconnect is called.
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	MaxAutoRetries int

	// OnChange fires after any timeline or state mutation.
	OnChange func()
	// OnTyping receives composing signals observed on the channel.
	OnTyping func(chat.TypingSignal)
}

// Synchronizer merges history pages, live channel events and optimistic
// local sends into one deduplicated, canonically ordered timeline, and
// manages the live channel lifecycle with bounded reconnect backoff.
//
// One instance owns one open conversation view; no other component
// mutates the timeline directly.
type Synchronizer struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	state    State
	timeline *Timeline
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	kick   chan struct{}
	done   chan struct{}
}

// NewSynchronizer creates a synchronizer for one conversation view.
func NewSynchronizer(opts Options) *Synchronizer {
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.MaxAutoRetries <= 0 {
		opts.MaxAutoRetries = 6
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Int64("conversation_id", opts.ConversationID).Logger()
	}

	return &Synchronizer{
		opts:     opts,
		log:      logger,
		state:    StateDisconnected,
		timeline: NewTimeline(),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Open seeds the timeline with the most recent history page and starts
// the live channel loop. A failed initial fetch is returned to the caller
// as a load error; nothing is retried automatically at this point.
func (s *Synchronizer) Open(ctx context.Context) error {
	page, err := s.opts.Fetcher.History(ctx, s.opts.ConversationID, "")
	if err != nil {
		return fmt.Errorf("initial history: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("synchronizer closed")
	}
	for _, msg := range page.Messages {
		s.timeline.Merge(msg)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.notify()

	go s.run()
	return nil
}

// State returns the current connection state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the timeline in display order.
func (s *Synchronizer) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline.Entries()
}

// Reconnect requests an immediate retry, skipping any pending backoff.
func (s *Synchronizer) Reconnect() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Close releases the live channel, cancels reconnect timers and discards
// the timeline. Any in-flight send completing afterwards is discarded.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateClosed
	s.timeline = NewTimeline()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-s.done
	} else {
		close(s.done)
	}
	s.notify()
}

// AddPending inserts an optimistic entry for a local send.
func (s *Synchronizer) AddPending(localID string, msg chat.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timeline.AddPending(localID, msg)
	s.mu.Unlock()
	s.notify()
}

// ReconcileSend resolves an optimistic entry with the persisted message
// from the send response, deduplicating against a channel recapture.
// A result arriving after Close is dropped on the floor.
func (s *Synchronizer) ReconcileSend(localID string, msg *chat.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timeline.Reconcile(localID, *msg)
	s.mu.Unlock()
	s.notify()
}

// DropPending removes an optimistic entry whose send failed.
func (s *Synchronizer) DropPending(localID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timeline.DropPending(localID)
	s.mu.Unlock()
	s.notify()
}

func (s *Synchronizer) run() {
	defer close(s.done)

	attempt := 0
	resync := false

	for s.ctx.Err() == nil {
		s.setState(StateConnecting)

		dialCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
		ch, err := s.opts.Dialer.Dial(dialCtx, s.opts.ConversationID)
		cancel()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Msg("live channel dial failed")
			s.setState(StateDegraded)
			attempt++
			if !s.waitBackoff(attempt) {
				return
			}
			continue
		}

		// Anything persisted while we were disconnected is covered by
		// re-fetching the newest page; the merge dedups by id.
		if resync {
			if err := s.resync(); err != nil {
				s.log.Warn().Err(err).Msg("resync failed")
				ch.Close()
				s.setState(StateDegraded)
				attempt++
				if !s.waitBackoff(attempt) {
					return
				}
				continue
			}
		}

		attempt = 0
		s.setState(StateConnected)
		s.consume(ch)

		if s.ctx.Err() != nil {
			ch.Close()
			return
		}

		if err := ch.Err(); err != nil {
			s.log.Warn().Err(err).Msg("live channel dropped")
		} else {
			s.log.Debug().Msg("live channel closed")
		}
		resync = true
		s.setState(StateDegraded)
		attempt++
		if !s.waitBackoff(attempt) {
			return
		}
	}
}

func (s *Synchronizer) consume(ch Channel) {
	for {
		select {
		case event, ok := <-ch.Events():
			if !ok {
				return
			}
			s.apply(event)
		case <-s.ctx.Done():
			ch.Close()
			return
		}
	}
}

func (s *Synchronizer) apply(event chat.Event) {
	changed := false

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	switch event.Kind {
	case chat.EventMessage:
		if event.Message != nil && event.Message.ConversationID == s.opts.ConversationID {
			s.timeline.Merge(*event.Message)
			changed = true
		}
	case chat.EventRead:
		if event.Read != nil {
			changed = s.timeline.MarkRead(event.Read.MessageID, event.Read.UserID)
		}
	case chat.EventTyping:
		// handled below without the lock
	}
	s.mu.Unlock()

	if event.Kind == chat.EventTyping && event.Typing != nil && s.opts.OnTyping != nil {
		s.opts.OnTyping(*event.Typing)
	}
	if changed {
		s.notify()
	}
}

func (s *Synchronizer) resync() error {
	page, err := s.opts.Fetcher.History(s.ctx, s.opts.ConversationID, "")
	if err != nil {
		return err
	}

	changed := false
	s.mu.Lock()
	for _, msg := range page.Messages {
		if s.timeline.Merge(msg) {
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// waitBackoff sleeps the capped exponential delay for the given attempt.
// Returns false when the synchronizer is shutting down. Past the retry
// budget it parks until the caller asks for a manual reconnect.
func (s *Synchronizer) waitBackoff(attempt int) bool {
	if attempt > s.opts.MaxAutoRetries {
		s.log.Warn().Int("attempts", attempt-1).Msg("retry budget exhausted, waiting for manual reconnect")
		select {
		case <-s.kick:
			return true
		case <-s.ctx.Done():
			return false
		}
	}

	delay := s.opts.BackoffBase << (attempt - 1)
	if delay > s.opts.BackoffMax {
		delay = s.opts.BackoffMax
	}
	delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.kick:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Synchronizer) setState(state State) {
	s.mu.Lock()
	if s.closed || s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	s.log.Debug().Str("state", state.String()).Msg("sync state changed")
	s.notify()
}

func (s *Synchronizer) notify() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}
