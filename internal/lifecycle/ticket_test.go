package lifecycle_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/hackdesk/internal/domain"
	"github.com/spec-kit/hackdesk/internal/lifecycle"
	"github.com/spec-kit/hackdesk/internal/notify"
	"github.com/spec-kit/hackdesk/internal/presence"
)

func submitAndClaim(t *testing.T, manager *lifecycle.Manager, requesters []string, helper string) *lifecycle.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket, err := manager.Submit(ctx, "my app crashes on start", "backend", requesters)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := ticket.Claim(ctx, helper); err != nil {
		t.Fatalf("claim: %v", err)
	}
	return ticket
}

func commChannel(t *testing.T, ticket *lifecycle.Ticket) lifecycle.ChannelHandle {
	t.Helper()
	snapshot := ticket.Snapshot()
	if snapshot.CommChannel == nil {
		t.Fatal("ticket has no comm channel")
	}
	return lifecycle.ChannelHandle(*snapshot.CommChannel)
}

// respond keeps injecting until a waiter on the surface accepts, since the
// prompt goroutine registers its waiter asynchronously.
func respond(t *testing.T, mem *notify.Memory, surface lifecycle.ChannelHandle, resp lifecycle.Response) {
	t.Helper()
	waitFor(t, time.Second, func() bool {
		return mem.Respond(surface, resp)
	})
}

func stalePrompts(mem *notify.Memory) int {
	count := 0
	for _, note := range mem.GroupNotifications() {
		if strings.Contains(note, "looks stale") {
			count++
		}
	}
	return count
}

func TestClaimMovesNewToTaken(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")

	snapshot := ticket.Snapshot()
	if snapshot.Status != domain.TicketStatusTaken {
		t.Fatalf("status = %s, want TAKEN", snapshot.Status)
	}
	if len(snapshot.Helpers) != 1 || snapshot.Helpers[0] != "mentor" {
		t.Fatalf("helpers = %v, want [mentor]", snapshot.Helpers)
	}
	if snapshot.CommChannel == nil {
		t.Fatal("room mode claim should provision a comm channel")
	}

	members := mem.ChannelMembers(lifecycle.ChannelHandle(*snapshot.CommChannel))
	if len(members) != 2 {
		t.Errorf("channel members = %v, want alice and mentor", members)
	}
	transcript := mem.ChannelTranscript(lifecycle.ChannelHandle(*snapshot.CommChannel))
	if len(transcript) == 0 || !strings.Contains(transcript[0], "my app crashes on start") {
		t.Errorf("transcript = %v, want original question reposted", transcript)
	}
	if notes := mem.UserNotifications("alice"); len(notes) == 0 || !strings.Contains(notes[0], "mentor") {
		t.Errorf("requester notifications = %v, want claim notice", notes)
	}
}

func TestClaimRejectsSelfAssist(t *testing.T) {
	manager, _ := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket, err := manager.Submit(ctx, "help", "backend", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := ticket.Claim(ctx, "bob"); !errors.Is(err, lifecycle.ErrSelfAssist) {
		t.Errorf("self claim: err = %v, want ErrSelfAssist", err)
	}
	if ticket.Status() != domain.TicketStatusNew {
		t.Errorf("status = %s, want NEW after rejected claim", ticket.Status())
	}
}

func TestExactlyOneClaimWins(t *testing.T) {
	manager, _ := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket, err := manager.Submit(ctx, "help", "backend", []string{"alice"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	const helpers = 8
	var wg sync.WaitGroup
	errs := make([]error, helpers)
	for i := 0; i < helpers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ticket.Claim(ctx, "mentor-"+string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, lifecycle.ErrInvalidTransition):
		default:
			t.Errorf("claim %d: unexpected err %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("claim wins = %d, want exactly 1", wins)
	}
	if got := len(ticket.Snapshot().Helpers); got != 1 {
		t.Errorf("helpers = %d, want 1", got)
	}
}

func TestJoinHelper(t *testing.T) {
	manager, _ := newTestManager(t, testConfig())
	ctx := context.Background()

	ticket, err := manager.Submit(ctx, "help", "backend", []string{"alice"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := ticket.JoinHelper(ctx, "mentor2"); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("join on NEW: err = %v, want ErrInvalidTransition", err)
	}

	if err := ticket.Claim(ctx, "mentor1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := ticket.JoinHelper(ctx, "mentor2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := ticket.JoinHelper(ctx, "mentor2"); !errors.Is(err, lifecycle.ErrAlreadyParticipant) {
		t.Errorf("duplicate join: err = %v, want ErrAlreadyParticipant", err)
	}
	if err := ticket.JoinHelper(ctx, "alice"); !errors.Is(err, lifecycle.ErrSelfAssist) {
		t.Errorf("requester join: err = %v, want ErrSelfAssist", err)
	}

	snapshot := ticket.Snapshot()
	if len(snapshot.Helpers) != 2 {
		t.Fatalf("helpers = %v, want two", snapshot.Helpers)
	}
}

func TestLastRequesterLeavingClosesTicket(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket := submitAndClaim(t, manager, []string{"alice", "bob"}, "mentor")
	channel := commChannel(t, ticket)

	if err := ticket.Leave(ctx, "alice"); err != nil {
		t.Fatalf("leave alice: %v", err)
	}
	if ticket.Status() != domain.TicketStatusTaken {
		t.Fatalf("status after first leave = %s, want TAKEN", ticket.Status())
	}

	if err := ticket.Leave(ctx, "bob"); err != nil {
		t.Fatalf("leave bob: %v", err)
	}
	snapshot := ticket.Snapshot()
	if snapshot.Status != domain.TicketStatusClosed {
		t.Fatalf("status = %s, want CLOSED when no requesters remain", snapshot.Status)
	}
	if snapshot.CloseReason == nil || *snapshot.CloseReason != domain.CloseReasonNoUsers {
		t.Errorf("close reason = %v, want %q", snapshot.CloseReason, domain.CloseReasonNoUsers)
	}
	if !mem.ChannelDestroyed(channel) {
		t.Error("comm channel should be destroyed on close")
	}
}

func TestLeaveRejectsNonParticipant(t *testing.T) {
	manager, _ := newTestManager(t, testConfig())
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")

	if err := ticket.Leave(context.Background(), "stranger"); !errors.Is(err, lifecycle.ErrNotParticipant) {
		t.Errorf("err = %v, want ErrNotParticipant", err)
	}
}

func TestCancelByRequester(t *testing.T) {
	manager, _ := newTestManager(t, testConfig())
	ctx := context.Background()

	ticket, err := manager.Submit(ctx, "help", "backend", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := ticket.CancelByRequester(ctx, "bob"); !errors.Is(err, lifecycle.ErrNotLeader) {
		t.Errorf("non-leader cancel: err = %v, want ErrNotLeader", err)
	}
	if err := ticket.CancelByRequester(ctx, "alice"); err != nil {
		t.Fatalf("leader cancel: %v", err)
	}
	snapshot := ticket.Snapshot()
	if snapshot.Status != domain.TicketStatusClosed {
		t.Fatalf("status = %s, want CLOSED", snapshot.Status)
	}
	if snapshot.CloseReason == nil || *snapshot.CloseReason != domain.CloseReasonRequester {
		t.Errorf("close reason = %v, want %q", snapshot.CloseReason, domain.CloseReasonRequester)
	}

	taken := submitAndClaim(t, manager, []string{"carol"}, "mentor")
	if err := taken.CancelByRequester(ctx, "carol"); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("cancel after claim: err = %v, want ErrInvalidTransition", err)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	manager, _ := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")

	if err := ticket.Close(ctx, domain.CloseReasonStaff); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ticket.Close(ctx, domain.CloseReasonInactivity); err != nil {
		t.Fatalf("second close should be a nil no-op, got %v", err)
	}
	if reason := ticket.Snapshot().CloseReason; reason == nil || *reason != domain.CloseReasonStaff {
		t.Errorf("close reason = %v, want first reason to stick", reason)
	}

	if err := ticket.Claim(ctx, "late-mentor"); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("claim after close: err = %v, want ErrInvalidTransition", err)
	}
	if err := ticket.JoinHelper(ctx, "late-mentor"); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("join after close: err = %v, want ErrInvalidTransition", err)
	}
	if err := ticket.Leave(ctx, "alice"); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("leave after close: err = %v, want ErrInvalidTransition", err)
	}
	if err := ticket.SetGCExclusion(true); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("gc toggle after close: err = %v, want ErrInvalidTransition", err)
	}
}

func TestHelperLeaveSilenceClosesTicket(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")

	if err := ticket.Leave(ctx, "mentor"); err != nil {
		t.Fatalf("helper leave: %v", err)
	}
	if stalePrompts(mem) != 1 {
		t.Fatalf("stale prompts = %d, want 1", stalePrompts(mem))
	}

	waitFor(t, time.Second, func() bool {
		return ticket.Status() == domain.TicketStatusClosed
	})
	if reason := ticket.Snapshot().CloseReason; reason == nil || *reason != domain.CloseReasonHelperLeft {
		t.Errorf("close reason = %v, want %q", reason, domain.CloseReasonHelperLeft)
	}
}

func TestKeepAliveResponseDefersClosure(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")
	channel := commChannel(t, ticket)

	if err := ticket.Leave(ctx, "mentor"); err != nil {
		t.Fatalf("helper leave: %v", err)
	}
	respond(t, mem, channel, lifecycle.Response{Author: "alice", Body: "still stuck, please keep it"})

	waitFor(t, time.Second, func() bool {
		for _, note := range mem.UserNotifications("alice") {
			if strings.Contains(note, "keeping ticket") {
				return true
			}
		}
		return false
	})
	if ticket.Status() != domain.TicketStatusTaken {
		t.Fatalf("status = %s, want TAKEN after keep-alive", ticket.Status())
	}

	// the recheck re-prompts after the inactive period; silence then closes
	waitFor(t, time.Second, func() bool {
		return stalePrompts(mem) >= 2
	})
	waitFor(t, time.Second, func() bool {
		return ticket.Status() == domain.TicketStatusClosed
	})
}

func TestAutomatedAndForeignResponsesIgnored(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")
	channel := commChannel(t, ticket)

	if err := ticket.Leave(ctx, "mentor"); err != nil {
		t.Fatalf("helper leave: %v", err)
	}

	// neither a bot message nor a bystander qualifies as keep-alive
	mem.Respond(channel, lifecycle.Response{Author: "alice", Body: "beep", Automated: true})
	mem.Respond(channel, lifecycle.Response{Author: "stranger", Body: "keep it"})

	waitFor(t, time.Second, func() bool {
		return ticket.Status() == domain.TicketStatusClosed
	})
}

func TestHelperJoinCancelsPendingClosure(t *testing.T) {
	cfg := testConfig()
	cfg.BufferTime = 150 * time.Millisecond
	manager, mem := newTestManager(t, cfg)
	ctx := context.Background()
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")

	if err := ticket.Leave(ctx, "mentor"); err != nil {
		t.Fatalf("helper leave: %v", err)
	}
	if err := ticket.JoinHelper(ctx, "mentor2"); err != nil {
		t.Fatalf("join during prompt window: %v", err)
	}

	time.Sleep(2 * cfg.BufferTime)
	if ticket.Status() != domain.TicketStatusTaken {
		t.Fatalf("status = %s, want TAKEN after a helper joined", ticket.Status())
	}

	// the no-helper sequence runs at most once per ticket
	if err := ticket.Leave(ctx, "mentor2"); err != nil {
		t.Fatalf("second helper leave: %v", err)
	}
	time.Sleep(2 * cfg.BufferTime)
	if got := stalePrompts(mem); got != 1 {
		t.Errorf("stale prompts = %d, want 1", got)
	}
	if ticket.Status() != domain.TicketStatusTaken {
		t.Errorf("status = %s, want TAKEN", ticket.Status())
	}
}

func TestGCExclusionSuppressesPromptAndClosure(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")

	if err := ticket.SetGCExclusion(true); err != nil {
		t.Fatalf("set gc exclusion: %v", err)
	}
	if err := ticket.Leave(ctx, "mentor"); err != nil {
		t.Fatalf("helper leave: %v", err)
	}

	time.Sleep(3 * testConfig().BufferTime)
	if got := stalePrompts(mem); got != 0 {
		t.Errorf("stale prompts = %d, want 0 while excluded", got)
	}
	if ticket.Status() != domain.TicketStatusTaken {
		t.Errorf("status = %s, want TAKEN", ticket.Status())
	}
}

func TestIdleRoomTriggersInactivitySequence(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")
	channel := commChannel(t, ticket)

	mem.TriggerIdle(channel)
	if got := stalePrompts(mem); got != 1 {
		t.Fatalf("stale prompts = %d, want 1", got)
	}
	// inactivity prompts reach the helpers too
	found := false
	for _, note := range mem.UserNotifications("mentor") {
		if strings.Contains(note, "looks stale") {
			found = true
		}
	}
	if !found {
		t.Error("helper did not receive the inactivity prompt")
	}

	waitFor(t, time.Second, func() bool {
		return ticket.Status() == domain.TicketStatusClosed
	})
	if reason := ticket.Snapshot().CloseReason; reason == nil || *reason != domain.CloseReasonInactivity {
		t.Errorf("close reason = %v, want %q", reason, domain.CloseReasonInactivity)
	}
}

func TestIdleSkippedWhileRoomOccupied(t *testing.T) {
	mem := notify.NewMemory()
	tracker := presence.NewMemoryTracker()
	manager := lifecycle.NewManager(testConfig(), lifecycle.ManagerDeps{
		Port:     mem,
		Presence: tracker,
	})
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")
	channel := commChannel(t, ticket)

	if err := tracker.Join(context.Background(), string(channel), "alice"); err != nil {
		t.Fatalf("presence join: %v", err)
	}
	mem.TriggerIdle(channel)
	if got := stalePrompts(mem); got != 0 {
		t.Errorf("stale prompts = %d, want 0 while the room is occupied", got)
	}
	if ticket.Status() != domain.TicketStatusTaken {
		t.Errorf("status = %s, want TAKEN", ticket.Status())
	}
}

func TestIdleIgnoredOncePromptPending(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")
	channel := commChannel(t, ticket)

	mem.TriggerIdle(channel)
	mem.TriggerIdle(channel)
	if got := stalePrompts(mem); got != 1 {
		t.Errorf("stale prompts = %d, want 1 for overlapping idle fires", got)
	}
	waitFor(t, time.Second, func() bool {
		return ticket.Status() == domain.TicketStatusClosed
	})
}

func TestBasicModeFallbackWhenChannelCreationFails(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	mem.FailCreateChannel = true
	ctx := context.Background()

	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")
	if ticket.Snapshot().CommChannel != nil {
		t.Fatal("claim should fall back to basic mode when channel creation fails")
	}
	if ticket.Status() != domain.TicketStatusTaken {
		t.Fatalf("status = %s, want TAKEN despite fallback", ticket.Status())
	}

	// without a room the prompt lands on the dispatch surface
	if err := ticket.Leave(ctx, "mentor"); err != nil {
		t.Fatalf("helper leave: %v", err)
	}
	respond(t, mem, "dispatch", lifecycle.Response{Author: "alice", Body: "keep it open"})
	waitFor(t, time.Second, func() bool {
		for _, note := range mem.UserNotifications("alice") {
			if strings.Contains(note, "keeping ticket") {
				return true
			}
		}
		return false
	})
}

func TestGroupNotificationFallsBackToBroadcast(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	mem.FailNotifyGroup = true

	submitAndClaim(t, manager, []string{"alice"}, "mentor")
	if len(mem.Fallbacks()) == 0 {
		t.Error("expected broadcast fallback when group delivery fails")
	}
}

func TestDispatchViewFollowsLifecycle(t *testing.T) {
	manager, mem := newTestManager(t, testConfig())
	ctx := context.Background()
	ticket := submitAndClaim(t, manager, []string{"alice"}, "mentor")

	handle := ticket.Snapshot().DispatchMessage
	if handle == nil {
		t.Fatal("ticket has no dispatch message")
	}
	fields, ok := mem.MessageState(lifecycle.MessageHandle(*handle))
	if !ok {
		t.Fatal("dispatch message never edited")
	}
	if fields.Status != domain.TicketStatusTaken {
		t.Errorf("view status = %s, want TAKEN", fields.Status)
	}

	if err := ticket.Close(ctx, domain.CloseReasonStaff); err != nil {
		t.Fatalf("close: %v", err)
	}
	fields, _ = mem.MessageState(lifecycle.MessageHandle(*handle))
	if fields.Status != domain.TicketStatusClosed {
		t.Errorf("view status = %s, want CLOSED", fields.Status)
	}
	if !strings.Contains(fields.Note, string(domain.CloseReasonStaff)) {
		t.Errorf("view note = %q, want close reason", fields.Note)
	}
}
