package lifecycle

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/hackdesk/internal/domain"
	"github.com/spec-kit/hackdesk/internal/events"
)

// SpecialtyRouter maps a requested specialty tag to the routing decision for
// the dispatch surface.
type SpecialtyRouter interface {
	// Resolve normalizes a tag, falling back to the default tag when the
	// requested one is unknown or empty.
	Resolve(tag string) string
	// Mention returns the group to notify for a tag.
	Mention(tag string) string
}

// ManagerDeps bundles collaborators for the ticket manager.
type ManagerDeps struct {
	Port       NotificationPort
	View       TicketView
	Presence   PresenceCounter
	Dispatcher events.Dispatcher
	Router     SpecialtyRouter
	Logger     *zap.Logger
}

// Manager owns the collection of live tickets. It is the only entity that
// creates tickets or discards them, and ids are never reused within a
// session.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	deps    ManagerDeps
	tickets map[int]*Ticket
	nextID  int
}

// NewManager constructs the manager.
func NewManager(cfg Config, deps ManagerDeps) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.View == nil {
		deps.View = NewDispatchView(deps.Port)
	}
	return &Manager{
		cfg:     cfg,
		deps:    deps,
		tickets: make(map[int]*Ticket),
		nextID:  1,
	}
}

// Submit creates a NEW ticket and announces it on the dispatch surface.
func (m *Manager) Submit(ctx context.Context, question, specialty string, requesterGroup []string) (*Ticket, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	group := dedupe(requesterGroup)
	if len(group) == 0 {
		return nil, ErrEmptyGroup
	}
	tag := specialty
	mention := ""
	if m.deps.Router != nil {
		tag = m.deps.Router.Resolve(specialty)
		mention = m.deps.Router.Mention(tag)
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.mu.Unlock()

	ticket := newTicket(id, question, tag, group, m.cfg, m.deps)

	handle, err := m.deps.View.Publish(ctx, ticket.Snapshot(), mention)
	if err != nil {
		m.deps.Logger.Error("dispatch announcement failed", zap.Int("ticket_id", id), zap.Error(err))
		return nil, err
	}
	ticket.mu.Lock()
	ticket.dispatchMsg = handle
	ticket.mu.Unlock()

	m.mu.Lock()
	m.tickets[id] = ticket
	m.mu.Unlock()

	m.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: id,
		Actor:    events.Actor{Kind: domain.ParticipantRequester, ID: group[0]},
		Payload: events.TicketSubmittedPayload{
			Question:   question,
			Specialty:  tag,
			Requesters: group,
		},
	})
	m.deps.Logger.Info("ticket submitted",
		zap.Int("ticket_id", id),
		zap.String("specialty", tag))
	return ticket, nil
}

// Claim delegates the NEW -> TAKEN transition to the ticket.
func (m *Manager) Claim(ctx context.Context, ticketID int, helper string) error {
	ticket, ok := m.Get(ticketID)
	if !ok {
		return ErrTicketNotFound
	}
	return ticket.Claim(ctx, helper)
}

// JoinHelper adds an additional helper to a TAKEN ticket.
func (m *Manager) JoinHelper(ctx context.Context, ticketID int, helper string) error {
	ticket, ok := m.Get(ticketID)
	if !ok {
		return ErrTicketNotFound
	}
	return ticket.JoinHelper(ctx, helper)
}

// Leave removes a participant from a ticket.
func (m *Manager) Leave(ctx context.Context, ticketID int, identity string) error {
	ticket, ok := m.Get(ticketID)
	if !ok {
		return ErrTicketNotFound
	}
	return ticket.Leave(ctx, identity)
}

// CancelByRequester lets the group leader withdraw an unclaimed ticket.
func (m *Manager) CancelByRequester(ctx context.Context, ticketID int, identity string) error {
	ticket, ok := m.Get(ticketID)
	if !ok {
		return ErrTicketNotFound
	}
	return ticket.CancelByRequester(ctx, identity)
}

// Close force-closes a ticket regardless of status. Idempotent when the
// ticket is already CLOSED.
func (m *Manager) Close(ctx context.Context, ticketID int, reason domain.CloseReason) error {
	ticket, ok := m.Get(ticketID)
	if !ok {
		return ErrTicketNotFound
	}
	return ticket.Close(ctx, reason)
}

// SetGCExclusion toggles the garbage-collection exclusion flag.
func (m *Manager) SetGCExclusion(ticketID int, excluded bool) error {
	ticket, ok := m.Get(ticketID)
	if !ok {
		return ErrTicketNotFound
	}
	return ticket.SetGCExclusion(excluded)
}

// Get returns a live ticket by id.
func (m *Manager) Get(ticketID int) (*Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketID]
	return ticket, ok
}

// List returns live tickets ordered by id.
func (m *Manager) List() []*Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Ticket, 0, len(m.tickets))
	for _, ticket := range m.tickets {
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// OpenCount returns the number of live non-CLOSED tickets.
func (m *Manager) OpenCount() int {
	count := 0
	for _, ticket := range m.List() {
		if ticket.Status() != domain.TicketStatusClosed {
			count++
		}
	}
	return count
}

// Sweep drops CLOSED tickets from the registry and returns how many were
// removed. Ids stay burned; they are never handed out again.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, ticket := range m.tickets {
		if ticket.Status() == domain.TicketStatusClosed {
			delete(m.tickets, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) publishEvent(ctx context.Context, event events.Event) {
	if m.deps.Dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = m.deps.Dispatcher.Publish(ctx, event)
}

func dedupe(identities []string) []string {
	seen := make(map[string]struct{}, len(identities))
	out := make([]string, 0, len(identities))
	for _, identity := range identities {
		identity = strings.TrimSpace(identity)
		if identity == "" {
			continue
		}
		if _, ok := seen[identity]; ok {
			continue
		}
		seen[identity] = struct{}{}
		out = append(out, identity)
	}
	return out
}
