package lifecycle

import "errors"

// Sentinel errors returned by ticket transitions. InvalidTransition and
// NotFound are soft rejections, never fatal.
var (
	ErrInvalidTransition  = errors.New("transition not legal from current status")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrSelfAssist         = errors.New("requester cannot assist their own ticket")
	ErrAlreadyParticipant = errors.New("identity already participates in ticket")
	ErrNotParticipant     = errors.New("identity does not participate in ticket")
	ErrNotLeader          = errors.New("only the original requester may cancel")
	ErrEmptyQuestion      = errors.New("question must not be empty")
	ErrEmptyGroup         = errors.New("requester group must not be empty")
)
