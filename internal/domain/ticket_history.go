package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus       TicketChangeType = "STATUS_CHANGE"
	ChangeTypeParticipants TicketChangeType = "PARTICIPANTS_CHANGE"
	ChangeTypeGCPrompt     TicketChangeType = "GC_PROMPT"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          string
	TicketID    int
	ActorKind   ParticipantKind
	ActorID     *string
	ChangeType  TicketChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
