package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hackdesk/internal/domain"
	apperrors "github.com/spec-kit/hackdesk/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Identity    string
	Kind        domain.ParticipantKind
	Specialties []string
}

// Middleware validates bearer tokens and stores the principal.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	switch claims.Kind {
	case domain.ParticipantRequester, domain.ParticipantHelper, domain.ParticipantStaff:
	default:
		return apperrors.NewUnauthorized("unknown participant kind")
	}

	c.Locals(principalKey, &Principal{
		Identity:    claims.Identity,
		Kind:        claims.Kind,
		Specialties: claims.Specialties,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated participant.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RequireKind ensures the principal is one of the allowed participant kinds.
func RequireKind(allowed ...domain.ParticipantKind) fiber.Handler {
	allowedSet := make(map[domain.ParticipantKind]struct{}, len(allowed))
	for _, kind := range allowed {
		allowedSet[kind] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Kind]; !exists {
			return apperrors.NewForbidden("participant kind not allowed")
		}
		return c.Next()
	}
}
