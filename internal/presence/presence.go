package presence

import (
	"context"
	"sync"
)

// Tracker records which participants are live on a communication channel.
// The room-mode idle check consults it before prompting: an idle channel
// with members still present is not garbage-collected.
type Tracker interface {
	Join(ctx context.Context, channel, identity string) error
	Leave(ctx context.Context, channel, identity string) error
	Count(ctx context.Context, channel string) (int, error)
	Clear(ctx context.Context, channel string) error
}

// MemoryTracker is the in-process Tracker used for tests and single-node
// deployments without Redis.
type MemoryTracker struct {
	mu       sync.Mutex
	channels map[string]map[string]struct{}
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{channels: make(map[string]map[string]struct{})}
}

// Join marks an identity present on a channel.
func (t *MemoryTracker) Join(ctx context.Context, channel, identity string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.channels[channel]
	if !ok {
		members = make(map[string]struct{})
		t.channels[channel] = members
	}
	members[identity] = struct{}{}
	return nil
}

// Leave marks an identity gone from a channel.
func (t *MemoryTracker) Leave(ctx context.Context, channel, identity string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if members, ok := t.channels[channel]; ok {
		delete(members, identity)
	}
	return nil
}

// Count returns how many identities are present on a channel.
func (t *MemoryTracker) Count(ctx context.Context, channel string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.channels[channel]), nil
}

// Clear drops all presence records for a channel.
func (t *MemoryTracker) Clear(ctx context.Context, channel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.channels, channel)
	return nil
}
