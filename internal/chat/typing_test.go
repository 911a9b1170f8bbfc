package chat

import (
	"testing"
	"time"
)

func TestTypingRegistryExpiry(t *testing.T) {
	r := NewTypingRegistry(4 * time.Second)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	r.now = func() time.Time { return clock }

	sig := r.Ping(1, 2)
	if !sig.ExpiresAt.Equal(start.Add(4 * time.Second)) {
		t.Fatalf("unexpected expiry: %v", sig.ExpiresAt)
	}

	clock = start.Add(time.Second)
	if got := r.Active(1); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected user 2 active, got %v", got)
	}

	clock = start.Add(5 * time.Second)
	if got := r.Active(1); len(got) != 0 {
		t.Fatalf("expected signal expired, got %v", got)
	}
}

func TestTypingRegistryRenewal(t *testing.T) {
	r := NewTypingRegistry(4 * time.Second)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	r.now = func() time.Time { return clock }

	r.Ping(1, 2)
	clock = start.Add(3 * time.Second)
	r.Ping(1, 2)

	clock = start.Add(6 * time.Second)
	if got := r.Active(1); len(got) != 1 {
		t.Fatalf("expected renewed signal still active, got %v", got)
	}
}

func TestTypingRegistryIsolatesConversations(t *testing.T) {
	r := NewTypingRegistry(4 * time.Second)

	r.Ping(1, 2)
	if got := r.Active(2); len(got) != 0 {
		t.Fatalf("expected no signals in other conversation, got %v", got)
	}
}
