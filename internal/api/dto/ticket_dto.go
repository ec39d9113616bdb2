package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/hackdesk/internal/domain"
	apperrors "github.com/spec-kit/hackdesk/pkg/util"
)

// SubmitTicketRequest is the payload for creating a help ticket.
type SubmitTicketRequest struct {
	Question  string   `json:"question"`
	Specialty string   `json:"specialty"`
	Group     []string `json:"group,omitempty"`
}

// Validate checks required fields before the service layer runs.
func (r *SubmitTicketRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return apperrors.NewValidationError("question is required", map[string]any{"field": "question"})
	}
	return nil
}

// GCExclusionRequest toggles inactivity collection for a ticket.
type GCExclusionRequest struct {
	Excluded bool `json:"excluded"`
}

// TicketResponse is the API projection of a ticket.
type TicketResponse struct {
	ID                 int        `json:"id"`
	Status             string     `json:"status"`
	Question           string     `json:"question"`
	Specialty          string     `json:"specialty"`
	Requesters         []string   `json:"requesters"`
	Helpers            []string   `json:"helpers"`
	ExcludedFromGC     bool       `json:"excluded_from_gc"`
	HelperGonePrompted bool       `json:"helper_gone_prompted"`
	CommChannel        *string    `json:"comm_channel,omitempty"`
	DispatchMessage    *string    `json:"dispatch_message,omitempty"`
	CloseReason        *string    `json:"close_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}

// NewTicketResponse maps a snapshot to its API projection.
func NewTicketResponse(snapshot *domain.TicketSnapshot) TicketResponse {
	resp := TicketResponse{
		ID:                 snapshot.ID,
		Status:             string(snapshot.Status),
		Question:           snapshot.Question,
		Specialty:          snapshot.Specialty,
		Requesters:         snapshot.Requesters,
		Helpers:            snapshot.Helpers,
		ExcludedFromGC:     snapshot.ExcludedFromGC,
		HelperGonePrompted: snapshot.HelperGonePrompted,
		CommChannel:        snapshot.CommChannel,
		DispatchMessage:    snapshot.DispatchMessage,
		CreatedAt:          snapshot.CreatedAt,
		UpdatedAt:          snapshot.UpdatedAt,
		ClosedAt:           snapshot.ClosedAt,
	}
	if snapshot.CloseReason != nil {
		reason := string(*snapshot.CloseReason)
		resp.CloseReason = &reason
	}
	return resp
}

// TicketHistoryResponse is the API projection of an audit trail entry.
type TicketHistoryResponse struct {
	ID         string         `json:"id"`
	TicketID   int            `json:"ticket_id"`
	ActorKind  string         `json:"actor_kind"`
	ActorID    *string        `json:"actor_id,omitempty"`
	ChangeType string         `json:"change_type"`
	OldValue   map[string]any `json:"old_value,omitempty"`
	NewValue   map[string]any `json:"new_value,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewTicketHistoryResponse maps audit entries.
func NewTicketHistoryResponse(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, TicketHistoryResponse{
			ID:         entry.ID,
			TicketID:   entry.TicketID,
			ActorKind:  string(entry.ActorKind),
			ActorID:    entry.ActorID,
			ChangeType: string(entry.ChangeType),
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return out
}

// NewTicketListResponse maps a slice of snapshots.
func NewTicketListResponse(snapshots []domain.TicketSnapshot) []TicketResponse {
	out := make([]TicketResponse, 0, len(snapshots))
	for i := range snapshots {
		out = append(out, NewTicketResponse(&snapshots[i]))
	}
	return out
}
