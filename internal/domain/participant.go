package domain

// ParticipantKind differentiates who is acting on a ticket.
type ParticipantKind string

const (
	ParticipantRequester ParticipantKind = "REQUESTER"
	ParticipantHelper    ParticipantKind = "HELPER"
	ParticipantStaff     ParticipantKind = "STAFF"
)

// Participant identifies a person interacting with the ticketing system.
type Participant struct {
	ID          string
	Kind        ParticipantKind
	Specialties []string
}
