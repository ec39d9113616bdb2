package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/hackdesk/internal/domain"
)

// MessageHandle is an opaque reference to a posted dispatch message.
type MessageHandle string

// ChannelHandle is an opaque reference to a communication surface.
type ChannelHandle string

// ErrNoResponse is returned by AwaitResponse when the deadline expires
// without a qualifying response.
var ErrNoResponse = errors.New("no qualifying response before deadline")

// Response is a single reply observed on a surface.
type Response struct {
	Author    string
	Body      string
	Automated bool
}

// ResponseFilter decides whether a response qualifies. It must be a pure
// predicate with no side effects.
type ResponseFilter func(Response) bool

// DispatchSummary carries the fields rendered into a dispatch announcement.
type DispatchSummary struct {
	TicketID  int
	Question  string
	Specialty string
	Mention   string
	Requester string
}

// MessageFields carries the mutable fields of a dispatch announcement.
type MessageFields struct {
	Status  domain.TicketStatus
	Helpers []string
	Note    string
}

// NotificationPort abstracts the chat platform adapter the lifecycle core
// talks to. Implementations retry transient failures internally; a returned
// error means delivery definitively failed.
type NotificationPort interface {
	PostDispatchMessage(ctx context.Context, specialty string, summary DispatchSummary) (MessageHandle, error)
	EditMessage(ctx context.Context, handle MessageHandle, fields MessageFields) error
	NotifyUser(ctx context.Context, identity, text string) error
	NotifyGroup(ctx context.Context, identities []string, text string) error
	CreateCommChannel(ctx context.Context, participants []string) (ChannelHandle, error)
	GrantAccess(ctx context.Context, channel ChannelHandle, identity string) error
	RevokeAccess(ctx context.Context, channel ChannelHandle, identity string) error
	DestroyChannel(ctx context.Context, channel ChannelHandle) error
	PostToChannel(ctx context.Context, channel ChannelHandle, text string) error
	// AwaitResponse blocks until a response matching filter arrives on the
	// surface or the timeout elapses, in which case it returns ErrNoResponse.
	AwaitResponse(ctx context.Context, surface ChannelHandle, filter ResponseFilter, timeout time.Duration) (*Response, error)
	// ObserveIdle invokes fn every time the channel has seen no qualifying
	// activity for idle. The returned function cancels the subscription.
	ObserveIdle(channel ChannelHandle, idle time.Duration, fn func()) (cancel func())
	// BroadcastFallback delivers text to the shared fallback surface when a
	// direct notification could not be delivered.
	BroadcastFallback(ctx context.Context, text string) error
}

// TicketView renders a ticket's public announcement. Injected into the state
// machine so transitions stay decoupled from presentation.
type TicketView interface {
	Publish(ctx context.Context, snapshot *domain.TicketSnapshot, mention string) (MessageHandle, error)
	Update(ctx context.Context, snapshot *domain.TicketSnapshot) error
	Finalize(ctx context.Context, snapshot *domain.TicketSnapshot) error
}

// PresenceCounter reports how many participants are live on a channel.
type PresenceCounter interface {
	Count(ctx context.Context, channel string) (int, error)
}
