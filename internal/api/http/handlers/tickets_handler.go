package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hackdesk/internal/api/dto"
	"github.com/spec-kit/hackdesk/internal/auth"
	"github.com/spec-kit/hackdesk/internal/domain"
	"github.com/spec-kit/hackdesk/internal/repository"
	"github.com/spec-kit/hackdesk/internal/service"
	apperrors "github.com/spec-kit/hackdesk/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	audit   *service.AuditService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, audit *service.AuditService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, audit: audit}
}

// SubmitTicket POST /tickets.
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("participant required")
	}
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	snapshot, err := h.tickets.Submit(c.UserContext(), principal.Identity, service.SubmitInput{
		Question:  req.Question,
		Specialty: req.Specialty,
		Group:     req.Group,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(snapshot)})
}

// ClaimTicket POST /tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("participant required")
	}
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	snapshot, err := h.tickets.Claim(c.UserContext(), ticketID, principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(snapshot)})
}

// JoinTicket POST /tickets/:id/helpers.
func (h *TicketsHandler) JoinTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("participant required")
	}
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	snapshot, err := h.tickets.Join(c.UserContext(), ticketID, principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(snapshot)})
}

// LeaveTicket POST /tickets/:id/leave.
func (h *TicketsHandler) LeaveTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("participant required")
	}
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	snapshot, err := h.tickets.Leave(c.UserContext(), ticketID, principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(snapshot)})
}

// CancelTicket POST /tickets/:id/cancel.
func (h *TicketsHandler) CancelTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("participant required")
	}
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	snapshot, err := h.tickets.Cancel(c.UserContext(), ticketID, principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(snapshot)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	snapshot, err := h.tickets.ForceClose(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(snapshot)})
}

// SetGCExclusion PATCH /tickets/:id/gc.
func (h *TicketsHandler) SetGCExclusion(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.GCExclusionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	snapshot, err := h.tickets.SetGCExclusion(c.UserContext(), ticketID, req.Excluded)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(snapshot)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	snapshot, err := h.tickets.Get(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(snapshot)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	snapshots, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketListResponse(snapshots)})
}

// GetHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	entries, err := h.audit.History(c.UserContext(), ticketID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketHistoryResponse(entries)})
}

func ticketIDParam(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"field": "id"})
	}
	return id, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.SnapshotFilter {
	filter := repository.SnapshotFilter{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	if specialty := strings.TrimSpace(c.Query("specialty")); specialty != "" {
		filter.Specialty = &specialty
	}
	if participant := strings.TrimSpace(c.Query("participant")); participant != "" {
		filter.Participant = &participant
	}
	if raw := c.Query("status"); raw != "" {
		for _, token := range strings.Split(raw, ",") {
			token = strings.ToUpper(strings.TrimSpace(token))
			if token == "" {
				continue
			}
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(token))
		}
	}
	return filter
}
