package presence

import (
	"context"
	"testing"
)

func TestMemoryTracker(t *testing.T) {
	tracker := NewMemoryTracker()
	ctx := context.Background()

	if n, _ := tracker.Count(ctx, "room-1"); n != 0 {
		t.Fatalf("count = %d, want 0 for empty room", n)
	}

	for _, identity := range []string{"alice", "bob", "alice"} {
		if err := tracker.Join(ctx, "room-1", identity); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if n, _ := tracker.Count(ctx, "room-1"); n != 2 {
		t.Errorf("count = %d, want 2 (join is idempotent per identity)", n)
	}

	if err := tracker.Leave(ctx, "room-1", "alice"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if n, _ := tracker.Count(ctx, "room-1"); n != 1 {
		t.Errorf("count = %d, want 1 after leave", n)
	}

	// rooms are independent
	if err := tracker.Join(ctx, "room-2", "carol"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := tracker.Clear(ctx, "room-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := tracker.Count(ctx, "room-1"); n != 0 {
		t.Errorf("count = %d, want 0 after clear", n)
	}
	if n, _ := tracker.Count(ctx, "room-2"); n != 1 {
		t.Errorf("count = %d, want other rooms untouched", n)
	}
}
