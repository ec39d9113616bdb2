package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/hackdesk/internal/lifecycle"
)

// ErrDelivery is returned when a Memory failure toggle is armed.
var ErrDelivery = errors.New("delivery failed")

type channelState struct {
	participants map[string]struct{}
	messages     []string
	destroyed    bool
}

type waiter struct {
	filter lifecycle.ResponseFilter
	ch     chan lifecycle.Response
}

type idleSub struct {
	fn        func()
	cancelled bool
}

// Memory is an in-process NotificationPort. It backs the dev loopback
// deployment and doubles as the test fake: responses and idle events are
// injected with Respond and TriggerIdle.
type Memory struct {
	mu         sync.Mutex
	messages   map[lifecycle.MessageHandle]lifecycle.DispatchSummary
	fields     map[lifecycle.MessageHandle]lifecycle.MessageFields
	channels   map[lifecycle.ChannelHandle]*channelState
	userNotes  map[string][]string
	groupNotes []string
	fallbacks  []string
	waiters    map[lifecycle.ChannelHandle][]*waiter
	idleSubs   map[lifecycle.ChannelHandle][]*idleSub

	// failure toggles for exercising degraded paths
	FailCreateChannel bool
	FailNotifyGroup   bool
	FailNotifyUser    bool
}

// NewMemory creates an empty in-memory port.
func NewMemory() *Memory {
	return &Memory{
		messages:  make(map[lifecycle.MessageHandle]lifecycle.DispatchSummary),
		fields:    make(map[lifecycle.MessageHandle]lifecycle.MessageFields),
		channels:  make(map[lifecycle.ChannelHandle]*channelState),
		userNotes: make(map[string][]string),
		waiters:   make(map[lifecycle.ChannelHandle][]*waiter),
		idleSubs:  make(map[lifecycle.ChannelHandle][]*idleSub),
	}
}

// PostDispatchMessage records a dispatch announcement and returns its handle.
func (m *Memory) PostDispatchMessage(ctx context.Context, specialty string, summary lifecycle.DispatchSummary) (lifecycle.MessageHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := lifecycle.MessageHandle("msg-" + uuid.NewString())
	m.messages[handle] = summary
	return handle, nil
}

// EditMessage updates the mutable fields of a dispatch announcement.
func (m *Memory) EditMessage(ctx context.Context, handle lifecycle.MessageHandle, fields lifecycle.MessageFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[handle]; !ok {
		return fmt.Errorf("unknown message handle %q", handle)
	}
	m.fields[handle] = fields
	return nil
}

// NotifyUser records a direct notification.
func (m *Memory) NotifyUser(ctx context.Context, identity, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNotifyUser {
		return ErrDelivery
	}
	m.userNotes[identity] = append(m.userNotes[identity], text)
	return nil
}

// NotifyGroup records a group notification, fanning out per identity.
func (m *Memory) NotifyGroup(ctx context.Context, identities []string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNotifyGroup {
		return ErrDelivery
	}
	m.groupNotes = append(m.groupNotes, text)
	for _, identity := range identities {
		m.userNotes[identity] = append(m.userNotes[identity], text)
	}
	return nil
}

// CreateCommChannel provisions a private channel for the participants.
func (m *Memory) CreateCommChannel(ctx context.Context, participants []string) (lifecycle.ChannelHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateChannel {
		return "", ErrDelivery
	}
	handle := lifecycle.ChannelHandle("chan-" + uuid.NewString())
	state := &channelState{participants: make(map[string]struct{})}
	for _, participant := range participants {
		state.participants[participant] = struct{}{}
	}
	m.channels[handle] = state
	return handle, nil
}

// GrantAccess adds a participant to a channel.
func (m *Memory) GrantAccess(ctx context.Context, channel lifecycle.ChannelHandle, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.channels[channel]
	if !ok || state.destroyed {
		return fmt.Errorf("unknown channel %q", channel)
	}
	state.participants[identity] = struct{}{}
	return nil
}

// RevokeAccess removes a participant from a channel.
func (m *Memory) RevokeAccess(ctx context.Context, channel lifecycle.ChannelHandle, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.channels[channel]
	if !ok || state.destroyed {
		return fmt.Errorf("unknown channel %q", channel)
	}
	delete(state.participants, identity)
	return nil
}

// DestroyChannel tears down a channel.
func (m *Memory) DestroyChannel(ctx context.Context, channel lifecycle.ChannelHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.channels[channel]
	if !ok {
		return fmt.Errorf("unknown channel %q", channel)
	}
	state.destroyed = true
	return nil
}

// PostToChannel appends a message to a channel transcript.
func (m *Memory) PostToChannel(ctx context.Context, channel lifecycle.ChannelHandle, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.channels[channel]
	if !ok || state.destroyed {
		return fmt.Errorf("unknown channel %q", channel)
	}
	state.messages = append(state.messages, text)
	return nil
}

// AwaitResponse blocks until Respond injects a qualifying response on the
// surface or the timeout elapses.
func (m *Memory) AwaitResponse(ctx context.Context, surface lifecycle.ChannelHandle, filter lifecycle.ResponseFilter, timeout time.Duration) (*lifecycle.Response, error) {
	w := &waiter{filter: filter, ch: make(chan lifecycle.Response, 1)}
	m.mu.Lock()
	m.waiters[surface] = append(m.waiters[surface], w)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		remaining := m.waiters[surface][:0]
		for _, other := range m.waiters[surface] {
			if other != w {
				remaining = append(remaining, other)
			}
		}
		m.waiters[surface] = remaining
		m.mu.Unlock()
	}()

	select {
	case resp := <-w.ch:
		return &resp, nil
	case <-time.After(timeout):
		return nil, lifecycle.ErrNoResponse
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Respond delivers a response to the first qualifying waiter on the surface.
// It reports whether any waiter accepted it.
func (m *Memory) Respond(surface lifecycle.ChannelHandle, resp lifecycle.Response) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.waiters[surface] {
		if w.filter != nil && !w.filter(resp) {
			continue
		}
		select {
		case w.ch <- resp:
			return true
		default:
		}
	}
	return false
}

// ObserveIdle registers an idle callback for the channel; TriggerIdle fires
// it. The returned function cancels the subscription.
func (m *Memory) ObserveIdle(channel lifecycle.ChannelHandle, idle time.Duration, fn func()) func() {
	sub := &idleSub{fn: fn}
	m.mu.Lock()
	m.idleSubs[channel] = append(m.idleSubs[channel], sub)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		sub.cancelled = true
		m.mu.Unlock()
	}
}

// TriggerIdle fires the active idle subscriptions for a channel.
func (m *Memory) TriggerIdle(channel lifecycle.ChannelHandle) {
	m.mu.Lock()
	subs := make([]*idleSub, 0, len(m.idleSubs[channel]))
	for _, sub := range m.idleSubs[channel] {
		if !sub.cancelled {
			subs = append(subs, sub)
		}
	}
	m.mu.Unlock()
	for _, sub := range subs {
		sub.fn()
	}
}

// BroadcastFallback records a fallback broadcast.
func (m *Memory) BroadcastFallback(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, text)
	return nil
}

// UserNotifications returns the notifications delivered to an identity.
func (m *Memory) UserNotifications(identity string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.userNotes[identity]...)
}

// GroupNotifications returns every group notification sent.
func (m *Memory) GroupNotifications() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.groupNotes...)
}

// Fallbacks returns every fallback broadcast sent.
func (m *Memory) Fallbacks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fallbacks...)
}

// DispatchCount returns how many dispatch messages were posted.
func (m *Memory) DispatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// MessageState returns the last edited fields of a dispatch message.
func (m *Memory) MessageState(handle lifecycle.MessageHandle) (lifecycle.MessageFields, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.fields[handle]
	return fields, ok
}

// ChannelDestroyed reports whether the channel has been torn down.
func (m *Memory) ChannelDestroyed(channel lifecycle.ChannelHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.channels[channel]
	return ok && state.destroyed
}

// ChannelMembers returns the current participants of a channel.
func (m *Memory) ChannelMembers(channel lifecycle.ChannelHandle) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.channels[channel]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(state.participants))
	for member := range state.participants {
		members = append(members, member)
	}
	return members
}

// ChannelTranscript returns the messages posted to a channel.
func (m *Memory) ChannelTranscript(channel lifecycle.ChannelHandle) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.channels[channel]
	if !ok {
		return nil
	}
	return append([]string(nil), state.messages...)
}
