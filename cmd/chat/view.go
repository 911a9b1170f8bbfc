package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/profullstack/ugig.net-sub000/internal/client"
)

// view prints timeline updates incrementally: confirmed messages once as
// they arrive, state transitions as they happen.
type view struct {
	selfID  int64
	otherID int64

	mu        sync.Mutex
	printed   map[int64]struct{}
	lastState client.State
	wasTyping bool
}

func newView(selfID, otherID int64) *view {
	return &view{
		selfID:  selfID,
		otherID: otherID,
		printed: map[int64]struct{}{},
	}
}

func (v *view) render(entries []client.Entry, state client.State, otherTyping bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if state != v.lastState {
		switch state {
		case client.StateConnected:
			fmt.Println("-- live --")
		case client.StateDegraded:
			fmt.Println("-- disconnected, reconnecting (use /retry to force) --")
		case client.StateClosed:
			fmt.Println("-- closed --")
		}
		v.lastState = state
	}

	for _, entry := range entries {
		if entry.Pending {
			continue
		}
		if _, ok := v.printed[entry.ID]; ok {
			continue
		}
		v.printed[entry.ID] = struct{}{}

		indicator := ""
		if mark := client.IndicatorFor(entry, v.selfID, v.otherID); mark != client.IndicatorNone {
			indicator = " [" + mark.String() + "]"
		}
		fmt.Printf("[%s] %s: %s%s\n",
			entry.CreatedAt.Format("15:04:05"), entry.SenderName, entry.Content, indicator)
	}

	if otherTyping != v.wasTyping {
		if otherTyping {
			fmt.Println("-- peer is typing --")
		}
		v.wasTyping = otherTyping
	}
}

func inputLoop(ctx context.Context, composer *client.Composer, typing *client.TypingTracker, sync *client.Synchronizer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "":
				// An empty line resubmits a draft kept after a failed send.
				if composer.Input() == "" {
					continue
				}
				if err := composer.Submit(ctx); err != nil {
					fmt.Printf("send failed (%s); input kept, press enter to retry\n", client.KindOf(err))
				}
				continue
			case "/retry":
				sync.Reconnect()
				continue
			case "/quit":
				return nil
			}

			typing.Send(ctx)
			composer.SetInput(line)
			if err := composer.Submit(ctx); err != nil {
				fmt.Printf("send failed (%s); input kept, press enter to retry: %s\n",
					client.KindOf(err), composer.Input())
			}
		case <-ctx.Done():
			return nil
		}
	}
}
