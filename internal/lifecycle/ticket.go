package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/hackdesk/internal/domain"
	"github.com/spec-kit/hackdesk/internal/events"
)

// Config controls lifecycle timing and mode for all tickets of a manager.
type Config struct {
	// BufferTime is the response window of a garbage-collection prompt.
	BufferTime time.Duration
	// InactivePeriod is both the rolling idle window of the room activity
	// listener and the delay before a keep-alive answer is re-checked.
	InactivePeriod time.Duration
	// RoomMode provisions a dedicated communication channel on claim.
	// When false the ticket stays on the dispatch surface.
	RoomMode bool
	// DispatchSurface is where announcements and basic-mode prompts land.
	DispatchSurface ChannelHandle
}

// Ticket is a single help request and its lifecycle state machine. All
// mutations are serialized per ticket; transitions on one ticket never
// interleave with each other, and late events against a CLOSED ticket are
// rejected as no-ops.
type Ticket struct {
	mu sync.Mutex

	id         int
	question   string
	specialty  string
	requesters []string
	helpers    []string
	status     domain.TicketStatus

	excludedFromGC     bool
	helperGonePrompted bool
	commChannel        ChannelHandle
	dispatchMsg        MessageHandle
	closeReason        domain.CloseReason

	createdAt time.Time
	updatedAt time.Time
	closedAt  *time.Time

	// gcSeq invalidates in-flight keep-alive waits: any event that makes a
	// pending prompt moot (helper join, closure) bumps it.
	gcSeq     int
	gcPending bool

	cfg        Config
	port       NotificationPort
	view       TicketView
	presence   PresenceCounter
	dispatcher events.Dispatcher
	timers     *TimerRegistry
	logger     *zap.Logger
	idleCancel func()
}

func newTicket(id int, question, specialty string, requesters []string, cfg Config, deps ManagerDeps) *Ticket {
	now := time.Now()
	return &Ticket{
		id:         id,
		question:   question,
		specialty:  specialty,
		requesters: append([]string(nil), requesters...),
		status:     domain.TicketStatusNew,
		createdAt:  now,
		updatedAt:  now,
		cfg:        cfg,
		port:       deps.Port,
		view:       deps.View,
		presence:   deps.Presence,
		dispatcher: deps.Dispatcher,
		timers:     NewTimerRegistry(),
		logger:     deps.Logger.With(zap.Int("ticket_id", id)),
	}
}

// ID returns the ticket id.
func (t *Ticket) ID() int {
	return t.id
}

// Status returns the current lifecycle status.
func (t *Ticket) Status() domain.TicketStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Snapshot returns a copy of the ticket state safe to persist or render.
func (t *Ticket) Snapshot() *domain.TicketSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Ticket) snapshotLocked() *domain.TicketSnapshot {
	snapshot := &domain.TicketSnapshot{
		ID:                 t.id,
		Status:             t.status,
		Question:           t.question,
		Specialty:          t.specialty,
		Requesters:         append([]string(nil), t.requesters...),
		Helpers:            append([]string(nil), t.helpers...),
		ExcludedFromGC:     t.excludedFromGC,
		HelperGonePrompted: t.helperGonePrompted,
		CreatedAt:          t.createdAt,
		UpdatedAt:          t.updatedAt,
		ClosedAt:           t.closedAt,
	}
	if t.commChannel != "" {
		channel := string(t.commChannel)
		snapshot.CommChannel = &channel
	}
	if t.dispatchMsg != "" {
		handle := string(t.dispatchMsg)
		snapshot.DispatchMessage = &handle
	}
	if t.closeReason != "" {
		reason := t.closeReason
		snapshot.CloseReason = &reason
	}
	return snapshot
}

// SetGCExclusion toggles suspension of inactivity-based auto-closure.
func (t *Ticket) SetGCExclusion(excluded bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == domain.TicketStatusClosed {
		return ErrInvalidTransition
	}
	t.excludedFromGC = excluded
	t.updatedAt = time.Now()
	return nil
}

// Claim moves the ticket NEW -> TAKEN for the first accepted helper. Claims
// against an already TAKEN or CLOSED ticket are rejected with
// ErrInvalidTransition; a requester claiming their own ticket is rejected
// with ErrSelfAssist.
func (t *Ticket) Claim(ctx context.Context, helper string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != domain.TicketStatusNew {
		return ErrInvalidTransition
	}
	if t.isRequesterLocked(helper) {
		return ErrSelfAssist
	}

	if t.cfg.RoomMode {
		t.provisionRoomLocked(ctx, helper)
	}

	t.status = domain.TicketStatusTaken
	t.helpers = []string{helper}
	t.updatedAt = time.Now()
	t.timers.Cancel(timerGCRecheck)

	t.notifyGroupLocked(ctx, t.requesters,
		fmt.Sprintf("Ticket %d: %s is on the way to help with %q.", t.id, helper, t.question))
	t.updateViewLocked(ctx)

	if t.commChannel != "" {
		t.startActivityListenerLocked()
	}

	t.publishEventLocked(ctx, events.EventTicketClaimed,
		events.Actor{Kind: domain.ParticipantHelper, ID: helper},
		events.TicketClaimedPayload{Helper: helper, CommChannel: t.snapshotLocked().CommChannel})
	return nil
}

// provisionRoomLocked creates the private communication channel on claim.
// When channel creation fails the ticket falls back to basic mode instead of
// committing a TAKEN state without a channel.
func (t *Ticket) provisionRoomLocked(ctx context.Context, helper string) {
	channel, err := t.port.CreateCommChannel(ctx, append(append([]string(nil), t.requesters...), helper))
	if err != nil {
		t.logger.Warn("comm channel creation failed, falling back to basic mode", zap.Error(err))
		return
	}
	t.commChannel = channel
	for _, identity := range t.requesters {
		if err := t.port.GrantAccess(ctx, channel, identity); err != nil {
			t.logger.Warn("grant access failed", zap.String("identity", identity), zap.Error(err))
		}
	}
	if err := t.port.GrantAccess(ctx, channel, helper); err != nil {
		t.logger.Warn("grant access failed", zap.String("identity", helper), zap.Error(err))
	}
	if err := t.port.PostToChannel(ctx, channel, fmt.Sprintf("Original question: %s", t.question)); err != nil {
		t.logger.Warn("posting question to comm channel failed", zap.Error(err))
	}
}

// JoinHelper adds another helper while the ticket is TAKEN.
func (t *Ticket) JoinHelper(ctx context.Context, helper string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != domain.TicketStatusTaken {
		return ErrInvalidTransition
	}
	if t.isRequesterLocked(helper) {
		return ErrSelfAssist
	}
	if t.isHelperLocked(helper) {
		return ErrAlreadyParticipant
	}

	existing := t.participantsLocked()
	t.helpers = append(t.helpers, helper)
	t.updatedAt = time.Now()

	// a live helper makes any pending no-helper sequence moot
	t.timers.Cancel(timerGCRecheck)
	t.gcSeq++
	t.gcPending = false

	if t.commChannel != "" {
		if err := t.port.GrantAccess(ctx, t.commChannel, helper); err != nil {
			t.logger.Warn("grant access failed", zap.String("identity", helper), zap.Error(err))
		}
	}
	t.notifyGroupLocked(ctx, existing,
		fmt.Sprintf("Ticket %d: %s joined to assist.", t.id, helper))
	t.updateViewLocked(ctx)

	t.publishEventLocked(ctx, events.EventTicketHelperJoined,
		events.Actor{Kind: domain.ParticipantHelper, ID: helper},
		events.TicketHelperJoinedPayload{Helper: helper, HelperCount: len(t.helpers)})
	return nil
}

// Leave removes a participant. An empty requester group closes the ticket;
// the last helper leaving starts the one-shot no-helper confirmation
// sequence when the ticket is not GC-excluded.
func (t *Ticket) Leave(ctx context.Context, identity string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == domain.TicketStatusClosed {
		return ErrInvalidTransition
	}

	var kind domain.ParticipantKind
	switch {
	case t.isRequesterLocked(identity):
		kind = domain.ParticipantRequester
		t.requesters = remove(t.requesters, identity)
	case t.isHelperLocked(identity):
		kind = domain.ParticipantHelper
		t.helpers = remove(t.helpers, identity)
	default:
		return ErrNotParticipant
	}
	t.updatedAt = time.Now()

	if t.commChannel != "" {
		if err := t.port.RevokeAccess(ctx, t.commChannel, identity); err != nil {
			t.logger.Warn("revoke access failed", zap.String("identity", identity), zap.Error(err))
		}
	}

	t.publishEventLocked(ctx, events.EventTicketParticipantLeft,
		events.Actor{Kind: kind, ID: identity},
		events.TicketParticipantLeftPayload{
			Identity:            identity,
			Kind:                kind,
			RemainingRequesters: len(t.requesters),
			RemainingHelpers:    len(t.helpers),
		})

	if len(t.requesters) == 0 {
		t.closeLocked(ctx, domain.CloseReasonNoUsers)
		return nil
	}

	if t.status == domain.TicketStatusTaken && len(t.helpers) == 0 &&
		!t.helperGonePrompted && !t.excludedFromGC {
		t.helperGonePrompted = true
		t.askToDeleteLocked(ctx, domain.CloseReasonHelperLeft)
		return nil
	}

	t.notifyGroupLocked(ctx, t.participantsLocked(),
		fmt.Sprintf("Ticket %d: %s left.", t.id, identity))
	t.updateViewLocked(ctx)
	return nil
}

// CancelByRequester closes a still-unclaimed ticket. Only the group leader
// may cancel; anyone else is rejected.
func (t *Ticket) CancelByRequester(ctx context.Context, identity string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != domain.TicketStatusNew {
		return ErrInvalidTransition
	}
	if len(t.requesters) == 0 || t.requesters[0] != identity {
		return ErrNotLeader
	}
	t.closeLocked(ctx, domain.CloseReasonRequester)
	return nil
}

// Close force-closes the ticket. Idempotent once CLOSED.
func (t *Ticket) Close(ctx context.Context, reason domain.CloseReason) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == domain.TicketStatusClosed {
		return nil
	}
	t.closeLocked(ctx, reason)
	return nil
}

// closeLocked performs the terminal transition: cancels timers, tears down
// the communication channel, finalizes the announcement and notifies every
// remaining participant of the outcome.
func (t *Ticket) closeLocked(ctx context.Context, reason domain.CloseReason) {
	oldStatus := t.status
	now := time.Now()
	t.status = domain.TicketStatusClosed
	t.closeReason = reason
	t.closedAt = &now
	t.updatedAt = now
	t.gcSeq++
	t.gcPending = false

	if t.idleCancel != nil {
		t.idleCancel()
		t.idleCancel = nil
	}
	t.timers.CancelAll()

	if t.commChannel != "" {
		for _, identity := range t.participantsLocked() {
			if err := t.port.RevokeAccess(ctx, t.commChannel, identity); err != nil {
				t.logger.Warn("revoke access failed", zap.String("identity", identity), zap.Error(err))
			}
		}
		if err := t.port.DestroyChannel(ctx, t.commChannel); err != nil {
			t.logger.Warn("destroy channel failed", zap.Error(err))
		}
	}

	if err := t.view.Finalize(ctx, t.snapshotLocked()); err != nil {
		t.logger.Warn("finalize view failed", zap.Error(err))
	}
	t.notifyGroupLocked(ctx, t.participantsLocked(),
		fmt.Sprintf("Ticket %d closed: %s.", t.id, reason))

	t.publishEventLocked(ctx, events.EventTicketClosed,
		events.Actor{Kind: domain.ParticipantStaff},
		events.TicketClosedPayload{OldStatus: oldStatus, Reason: reason})

	t.logger.Info("ticket closed",
		zap.String("old_status", string(oldStatus)),
		zap.String("reason", string(reason)))
}

// askToDeleteLocked runs the confirm-or-close protocol: prompt the remaining
// participants, wait up to BufferTime for one qualifying answer, close on
// silence, or acknowledge and re-arm the single recheck timer.
func (t *Ticket) askToDeleteLocked(ctx context.Context, reason domain.CloseReason) {
	if t.status == domain.TicketStatusClosed {
		return
	}

	targets := append([]string(nil), t.requesters...)
	if reason == domain.CloseReasonInactivity {
		targets = append(targets, t.helpers...)
	}
	deadline := time.Now().Add(t.cfg.BufferTime)
	t.notifyGroupLocked(ctx, targets, fmt.Sprintf(
		"Ticket %d looks stale (%s). Reply within %d minute(s) if you still need it, otherwise it will be closed.",
		t.id, reason, int(t.cfg.BufferTime.Minutes())))

	t.publishEventLocked(ctx, events.EventTicketGCPrompted,
		events.Actor{Kind: domain.ParticipantStaff},
		events.TicketGCPromptedPayload{Reason: reason, Deadline: deadline})

	t.gcSeq++
	seq := t.gcSeq
	t.gcPending = true
	surface := t.promptSurfaceLocked()
	filter := keepAliveFilter(targets)

	go func() {
		resp, err := t.port.AwaitResponse(context.Background(), surface, filter, t.cfg.BufferTime)

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.status == domain.TicketStatusClosed || t.gcSeq != seq {
			return
		}
		t.gcPending = false

		if err != nil {
			if t.excludedFromGC {
				return
			}
			t.closeLocked(context.Background(), reason)
			return
		}

		if err := t.port.NotifyUser(context.Background(), resp.Author,
			fmt.Sprintf("Got it, keeping ticket %d open.", t.id)); err != nil {
			t.logger.Warn("keep-alive acknowledgment failed", zap.Error(err))
		}
		t.timers.Schedule(timerGCRecheck, t.cfg.InactivePeriod, func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.status == domain.TicketStatusClosed {
				return
			}
			t.askToDeleteLocked(context.Background(), reason)
		})
	}()
}

// startActivityListenerLocked arms the room-mode idle watch. It keeps firing
// once per idle period until the ticket leaves TAKEN, at which point the
// subscription is cancelled.
func (t *Ticket) startActivityListenerLocked() {
	channel := t.commChannel
	t.idleCancel = t.port.ObserveIdle(channel, t.cfg.InactivePeriod, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.status != domain.TicketStatusTaken || t.gcPending || t.excludedFromGC {
			return
		}
		if t.presence != nil {
			if n, err := t.presence.Count(context.Background(), string(channel)); err == nil && n > 0 {
				return
			}
		}
		t.askToDeleteLocked(context.Background(), domain.CloseReasonInactivity)
	})
}

// keepAliveFilter qualifies a single non-automated answer from one of the
// prompted participants.
func keepAliveFilter(members []string) ResponseFilter {
	set := make(map[string]struct{}, len(members))
	for _, member := range members {
		set[member] = struct{}{}
	}
	return func(resp Response) bool {
		if resp.Automated {
			return false
		}
		_, ok := set[resp.Author]
		return ok
	}
}

func (t *Ticket) promptSurfaceLocked() ChannelHandle {
	if t.commChannel != "" {
		return t.commChannel
	}
	return t.cfg.DispatchSurface
}

func (t *Ticket) notifyGroupLocked(ctx context.Context, identities []string, text string) {
	if len(identities) == 0 {
		return
	}
	if err := t.port.NotifyGroup(ctx, identities, text); err != nil {
		t.logger.Warn("group notification failed, broadcasting fallback", zap.Error(err))
		if err := t.port.BroadcastFallback(ctx, text); err != nil {
			t.logger.Error("fallback broadcast failed", zap.Error(err))
		}
	}
}

func (t *Ticket) updateViewLocked(ctx context.Context) {
	if err := t.view.Update(ctx, t.snapshotLocked()); err != nil {
		t.logger.Warn("dispatch view update failed", zap.Error(err))
	}
}

func (t *Ticket) publishEventLocked(ctx context.Context, eventType events.EventType, actor events.Actor, payload interface{}) {
	if t.dispatcher == nil {
		return
	}
	_ = t.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  t.id,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func (t *Ticket) participantsLocked() []string {
	return append(append([]string(nil), t.requesters...), t.helpers...)
}

func (t *Ticket) isRequesterLocked(identity string) bool {
	for _, member := range t.requesters {
		if member == identity {
			return true
		}
	}
	return false
}

func (t *Ticket) isHelperLocked(identity string) bool {
	for _, member := range t.helpers {
		if member == identity {
			return true
		}
	}
	return false
}

func remove(list []string, identity string) []string {
	out := list[:0]
	for _, member := range list {
		if member != identity {
			out = append(out, member)
		}
	}
	return out
}
