package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherRoutesByType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	ctx := context.Background()

	var claimed, closed int
	dispatcher.Subscribe(EventTicketClaimed, func(ctx context.Context, event Event) error {
		claimed++
		return nil
	})
	dispatcher.Subscribe(EventTicketClosed, func(ctx context.Context, event Event) error {
		closed++
		return nil
	})

	if err := dispatcher.Publish(ctx, Event{Type: EventTicketClaimed, TicketID: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := dispatcher.Publish(ctx, Event{Type: EventTicketClaimed, TicketID: 2}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if claimed != 2 || closed != 0 {
		t.Errorf("claimed = %d closed = %d, want 2 and 0", claimed, closed)
	}
}

func TestDispatcherDeliversPastFailingHandler(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var reached bool
	dispatcher.Subscribe(EventTicketSubmitted, func(ctx context.Context, event Event) error {
		return errors.New("boom")
	})
	dispatcher.Subscribe(EventTicketSubmitted, func(ctx context.Context, event Event) error {
		reached = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventTicketSubmitted}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !reached {
		t.Error("second handler skipped after first handler errored")
	}
}

func TestDispatcherIgnoresUnknownType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	if err := dispatcher.Publish(context.Background(), Event{Type: "unheard_of"}); err != nil {
		t.Fatalf("publish without subscribers: %v", err)
	}
}
