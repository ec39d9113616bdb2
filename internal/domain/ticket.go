package domain

import "time"

// TicketStatus enumerates lifecycle states for help tickets.
type TicketStatus string

const (
	TicketStatusNew    TicketStatus = "NEW"
	TicketStatusTaken  TicketStatus = "TAKEN"
	TicketStatusClosed TicketStatus = "CLOSED"
)

// CloseReason records why a ticket reached its terminal state.
type CloseReason string

const (
	CloseReasonNoUsers    CloseReason = "no users remaining"
	CloseReasonHelperLeft CloseReason = "mentor left"
	CloseReasonInactivity CloseReason = "inactivity"
	CloseReasonRequester  CloseReason = "requester cancelled"
	CloseReasonStaff      CloseReason = "staff closed"
)

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:    {TicketStatusTaken, TicketStatusClosed},
	TicketStatusTaken:  {TicketStatusClosed},
	TicketStatusClosed: {},
}

// CanTransition reports whether moving from current to next is legal.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TicketSnapshot is the persistable projection of a ticket, one record per
// ticket keyed by id.
type TicketSnapshot struct {
	ID                 int
	Status             TicketStatus
	Question           string
	Specialty          string
	Requesters         []string
	Helpers            []string
	ExcludedFromGC     bool
	HelperGonePrompted bool
	CommChannel        *string
	DispatchMessage    *string
	CloseReason        *CloseReason
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ClosedAt           *time.Time
}

// Leader returns the original requester, the first member of the group.
func (s *TicketSnapshot) Leader() string {
	if len(s.Requesters) == 0 {
		return ""
	}
	return s.Requesters[0]
}
