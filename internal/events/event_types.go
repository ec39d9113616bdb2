package events

import (
	"time"

	"github.com/spec-kit/hackdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted       EventType = "ticket_submitted"
	EventTicketClaimed         EventType = "ticket_claimed"
	EventTicketHelperJoined    EventType = "ticket_helper_joined"
	EventTicketParticipantLeft EventType = "ticket_participant_left"
	EventTicketGCPrompted      EventType = "ticket_gc_prompted"
	EventTicketClosed          EventType = "ticket_closed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Kind domain.ParticipantKind `json:"kind"`
	ID   string                 `json:"id,omitempty"`
}

// Event represents a domain event emitted by the ticket lifecycle.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int         `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Question   string   `json:"question"`
	Specialty  string   `json:"specialty"`
	Requesters []string `json:"requesters"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	Helper      string  `json:"helper"`
	CommChannel *string `json:"comm_channel,omitempty"`
}

// TicketHelperJoinedPayload payload.
type TicketHelperJoinedPayload struct {
	Helper      string `json:"helper"`
	HelperCount int    `json:"helper_count"`
}

// TicketParticipantLeftPayload payload.
type TicketParticipantLeftPayload struct {
	Identity            string                 `json:"identity"`
	Kind                domain.ParticipantKind `json:"kind"`
	RemainingRequesters int                    `json:"remaining_requesters"`
	RemainingHelpers    int                    `json:"remaining_helpers"`
}

// TicketGCPromptedPayload payload.
type TicketGCPromptedPayload struct {
	Reason   domain.CloseReason `json:"reason"`
	Deadline time.Time          `json:"deadline"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	Reason    domain.CloseReason  `json:"reason"`
}
