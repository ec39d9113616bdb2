package dto

import (
	"time"

	"github.com/spec-kit/hackdesk/internal/domain"
	apperrors "github.com/spec-kit/hackdesk/pkg/util"
)

// TokenRequest exchanges the provisioning key for a participant token.
type TokenRequest struct {
	Key         string   `json:"key"`
	Identity    string   `json:"identity"`
	Kind        string   `json:"kind"`
	Specialties []string `json:"specialties,omitempty"`
}

// Validate checks required fields and the participant kind.
func (r *TokenRequest) Validate() error {
	if r.Key == "" {
		return apperrors.NewValidationError("key is required", map[string]any{"field": "key"})
	}
	if r.Identity == "" {
		return apperrors.NewValidationError("identity is required", map[string]any{"field": "identity"})
	}
	switch domain.ParticipantKind(r.Kind) {
	case domain.ParticipantRequester, domain.ParticipantHelper, domain.ParticipantStaff:
		return nil
	default:
		return apperrors.NewValidationError("unknown participant kind", map[string]any{"field": "kind"})
	}
}

// TokenResponse carries the signed token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
