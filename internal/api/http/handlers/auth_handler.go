package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hackdesk/internal/api/dto"
	"github.com/spec-kit/hackdesk/internal/auth"
	"github.com/spec-kit/hackdesk/internal/domain"
	apperrors "github.com/spec-kit/hackdesk/pkg/util"
)

// AuthHandler exchanges the shared provisioning key for participant tokens.
type AuthHandler struct {
	tokens           *auth.TokenManager
	provisionKeyHash string
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *auth.TokenManager, provisionKeyHash string) *AuthHandler {
	return &AuthHandler{tokens: tokens, provisionKeyHash: provisionKeyHash}
}

// IssueToken POST /auth/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if h.provisionKeyHash == "" {
		return apperrors.NewForbidden("token provisioning disabled")
	}
	if err := auth.VerifyProvisionKey(h.provisionKeyHash, req.Key); err != nil {
		return apperrors.NewUnauthorized("invalid provisioning key")
	}

	token, expiresAt, err := h.tokens.GenerateToken(req.Identity, domain.ParticipantKind(req.Kind), req.Specialties)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}})
}
