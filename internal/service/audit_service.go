package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/hackdesk/internal/domain"
	"github.com/spec-kit/hackdesk/internal/events"
	"github.com/spec-kit/hackdesk/internal/observability"
	"github.com/spec-kit/hackdesk/internal/repository"
	apperrors "github.com/spec-kit/hackdesk/pkg/util"
)

// AuditService translates lifecycle events into history rows, metrics and
// structured logs.
type AuditService struct {
	history repository.TicketHistoryRepository
	metrics *observability.Metrics
	logger  *zap.Logger
}

// AuditDependencies bundles collaborators for the audit service.
type AuditDependencies struct {
	History repository.TicketHistoryRepository
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		history: deps.History,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

// RegisterHandlers subscribes the audit trail to every lifecycle event.
func (s *AuditService) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketSubmitted,
		events.EventTicketClaimed,
		events.EventTicketHelperJoined,
		events.EventTicketParticipantLeft,
		events.EventTicketGCPrompted,
		events.EventTicketClosed,
	} {
		dispatcher.Subscribe(eventType, s.handleEvent)
	}
}

// History returns the persisted audit trail for a ticket, newest first.
func (s *AuditService) History(ctx context.Context, ticketID int, limit, offset int) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	s.metrics.RecordTicketEvent(metricKey(event))
	s.logger.Info("ticket event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int("ticket_id", event.TicketID),
		zap.String("actor_kind", string(event.Actor.Kind)),
		zap.String("actor_id", event.Actor.ID))

	if s.history == nil {
		return nil
	}
	entry := historyEntry(event)
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("audit trail write failed",
			zap.Int("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}

func metricKey(event events.Event) string {
	if event.Type == events.EventTicketClosed {
		if payload, ok := event.Payload.(events.TicketClosedPayload); ok {
			return fmt.Sprintf("closed|%s", payload.Reason)
		}
	}
	return string(event.Type)
}

func historyEntry(event events.Event) *domain.TicketHistory {
	entry := &domain.TicketHistory{
		TicketID:  event.TicketID,
		ActorKind: event.Actor.Kind,
	}
	if event.Actor.ID != "" {
		actorID := event.Actor.ID
		entry.ActorID = &actorID
	}

	switch payload := event.Payload.(type) {
	case events.TicketSubmittedPayload:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.NewValue = map[string]any{
			"status":     string(domain.TicketStatusNew),
			"question":   payload.Question,
			"specialty":  payload.Specialty,
			"requesters": payload.Requesters,
		}
	case events.TicketClaimedPayload:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.OldValue = map[string]any{"status": string(domain.TicketStatusNew)}
		newValue := map[string]any{
			"status": string(domain.TicketStatusTaken),
			"helper": payload.Helper,
		}
		if payload.CommChannel != nil {
			newValue["comm_channel"] = *payload.CommChannel
		}
		entry.NewValue = newValue
	case events.TicketHelperJoinedPayload:
		entry.ChangeType = domain.ChangeTypeParticipants
		entry.NewValue = map[string]any{
			"helper":       payload.Helper,
			"helper_count": payload.HelperCount,
		}
	case events.TicketParticipantLeftPayload:
		entry.ChangeType = domain.ChangeTypeParticipants
		entry.OldValue = map[string]any{"identity": payload.Identity, "kind": string(payload.Kind)}
		entry.NewValue = map[string]any{
			"remaining_requesters": payload.RemainingRequesters,
			"remaining_helpers":    payload.RemainingHelpers,
		}
	case events.TicketGCPromptedPayload:
		entry.ChangeType = domain.ChangeTypeGCPrompt
		entry.NewValue = map[string]any{
			"reason":   string(payload.Reason),
			"deadline": payload.Deadline,
		}
	case events.TicketClosedPayload:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.OldValue = map[string]any{"status": string(payload.OldStatus)}
		entry.NewValue = map[string]any{
			"status": string(domain.TicketStatusClosed),
			"reason": string(payload.Reason),
		}
	default:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.NewValue = map[string]any{"event_type": string(event.Type)}
	}
	return entry
}
