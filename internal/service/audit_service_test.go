package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/hackdesk/internal/domain"
	"github.com/spec-kit/hackdesk/internal/events"
	"github.com/spec-kit/hackdesk/internal/observability"
	"github.com/spec-kit/hackdesk/internal/service"
)

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
}

func (f *fakeHistoryRepo) Create(ctx context.Context, entry *domain.TicketHistory) error {
	entry.ID = "fake-id"
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID int, limit, offset int) ([]domain.TicketHistory, error) {
	out := []domain.TicketHistory{}
	for _, entry := range f.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func TestAuditTrailRecordsLifecycleEvents(t *testing.T) {
	repo := &fakeHistoryRepo{}
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	audit := service.NewAuditService(service.AuditDependencies{
		History: repo,
		Metrics: metrics,
	})
	audit.RegisterHandlers(dispatcher)
	ctx := context.Background()

	publish := func(event events.Event) {
		t.Helper()
		if err := dispatcher.Publish(ctx, event); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	publish(events.Event{
		ID: "e1", Type: events.EventTicketSubmitted, TicketID: 7,
		Actor:   events.Actor{Kind: domain.ParticipantRequester, ID: "alice"},
		Payload: events.TicketSubmittedPayload{Question: "help", Specialty: "backend", Requesters: []string{"alice"}},
	})
	publish(events.Event{
		ID: "e2", Type: events.EventTicketClaimed, TicketID: 7,
		Actor:   events.Actor{Kind: domain.ParticipantHelper, ID: "mentor"},
		Payload: events.TicketClaimedPayload{Helper: "mentor"},
	})
	publish(events.Event{
		ID: "e3", Type: events.EventTicketClosed, TicketID: 7,
		Actor:   events.Actor{Kind: domain.ParticipantStaff},
		Payload: events.TicketClosedPayload{OldStatus: domain.TicketStatusTaken, Reason: domain.CloseReasonInactivity},
	})

	if len(repo.entries) != 3 {
		t.Fatalf("history entries = %d, want 3", len(repo.entries))
	}

	submitted := repo.entries[0]
	if submitted.ChangeType != domain.ChangeTypeStatus {
		t.Errorf("change type = %s, want STATUS_CHANGE", submitted.ChangeType)
	}
	if submitted.ActorID == nil || *submitted.ActorID != "alice" {
		t.Errorf("actor = %v, want alice", submitted.ActorID)
	}
	if submitted.NewValue["status"] != string(domain.TicketStatusNew) {
		t.Errorf("new status = %v, want NEW", submitted.NewValue["status"])
	}

	closed := repo.entries[2]
	if closed.OldValue["status"] != string(domain.TicketStatusTaken) {
		t.Errorf("old status = %v, want TAKEN", closed.OldValue["status"])
	}
	if closed.NewValue["reason"] != string(domain.CloseReasonInactivity) {
		t.Errorf("reason = %v, want inactivity", closed.NewValue["reason"])
	}
	if closed.ActorID != nil {
		t.Errorf("actor id = %v, want nil for system closure", closed.ActorID)
	}

	if metrics.TicketEventCount("ticket_submitted") != 1 {
		t.Error("submitted counter not incremented")
	}
	if metrics.TicketEventCount("closed|inactivity") != 1 {
		t.Error("closed counter missing reason-qualified key")
	}

	history, err := audit.History(ctx, 7, 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history len = %d, want 3", len(history))
	}
}

func TestAuditWithoutStoreStillCounts(t *testing.T) {
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	audit := service.NewAuditService(service.AuditDependencies{Metrics: metrics})
	audit.RegisterHandlers(dispatcher)

	if err := dispatcher.Publish(context.Background(), events.Event{
		ID: "e1", Type: events.EventTicketGCPrompted, TicketID: 1,
		Actor:   events.Actor{Kind: domain.ParticipantStaff},
		Payload: events.TicketGCPromptedPayload{Reason: domain.CloseReasonHelperLeft, Deadline: time.Now()},
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if metrics.TicketEventCount("ticket_gc_prompted") != 1 {
		t.Error("gc prompt counter not incremented")
	}
	history, err := audit.History(context.Background(), 1, 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history len = %d, want 0 without a store", len(history))
	}
}
