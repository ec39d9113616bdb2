package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/hackdesk/internal/domain"
	"github.com/spec-kit/hackdesk/internal/lifecycle"
	"github.com/spec-kit/hackdesk/internal/presence"
	"github.com/spec-kit/hackdesk/internal/repository"
	apperrors "github.com/spec-kit/hackdesk/pkg/util"
)

// TicketService orchestrates lifecycle operations and keeps the persisted
// snapshots in step with the in-memory state machine.
type TicketService struct {
	manager   *lifecycle.Manager
	snapshots repository.TicketSnapshotRepository
	presence  presence.Tracker
	logger    *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Manager      *lifecycle.Manager
	SnapshotRepo repository.TicketSnapshotRepository
	Presence     presence.Tracker
	Logger       *zap.Logger
}

// SubmitInput describes a new help request.
type SubmitInput struct {
	Question  string
	Specialty string
	Group     []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		manager:   deps.Manager,
		snapshots: deps.SnapshotRepo,
		presence:  deps.Presence,
		logger:    logger,
	}
}

// Submit creates a ticket with the caller as group leader.
func (s *TicketService) Submit(ctx context.Context, leader string, input SubmitInput) (*domain.TicketSnapshot, error) {
	group := append([]string{leader}, input.Group...)
	ticket, err := s.manager.Submit(ctx, input.Question, input.Specialty, group)
	if err != nil {
		return nil, mapLifecycleError(err)
	}
	snapshot := ticket.Snapshot()
	s.persist(ctx, snapshot)
	return snapshot, nil
}

// Claim assigns the first accepted helper to a NEW ticket.
func (s *TicketService) Claim(ctx context.Context, ticketID int, helper string) (*domain.TicketSnapshot, error) {
	if err := s.manager.Claim(ctx, ticketID, helper); err != nil {
		return nil, mapLifecycleError(err)
	}
	snapshot := s.liveSnapshot(ticketID)
	if snapshot != nil && snapshot.CommChannel != nil && s.presence != nil {
		if err := s.presence.Join(ctx, *snapshot.CommChannel, helper); err != nil {
			s.logger.Warn("presence join failed", zap.Error(err))
		}
	}
	s.persist(ctx, snapshot)
	return snapshot, nil
}

// Join adds an additional helper to a TAKEN ticket.
func (s *TicketService) Join(ctx context.Context, ticketID int, helper string) (*domain.TicketSnapshot, error) {
	if err := s.manager.JoinHelper(ctx, ticketID, helper); err != nil {
		return nil, mapLifecycleError(err)
	}
	snapshot := s.liveSnapshot(ticketID)
	if snapshot != nil && snapshot.CommChannel != nil && s.presence != nil {
		if err := s.presence.Join(ctx, *snapshot.CommChannel, helper); err != nil {
			s.logger.Warn("presence join failed", zap.Error(err))
		}
	}
	s.persist(ctx, snapshot)
	return snapshot, nil
}

// Leave removes a participant from a ticket.
func (s *TicketService) Leave(ctx context.Context, ticketID int, identity string) (*domain.TicketSnapshot, error) {
	before := s.liveSnapshot(ticketID)
	if err := s.manager.Leave(ctx, ticketID, identity); err != nil {
		return nil, mapLifecycleError(err)
	}
	snapshot := s.liveSnapshot(ticketID)
	if before != nil && before.CommChannel != nil && s.presence != nil {
		if err := s.presence.Leave(ctx, *before.CommChannel, identity); err != nil {
			s.logger.Warn("presence leave failed", zap.Error(err))
		}
		if snapshot != nil && snapshot.Status == domain.TicketStatusClosed {
			if err := s.presence.Clear(ctx, *before.CommChannel); err != nil {
				s.logger.Warn("presence clear failed", zap.Error(err))
			}
		}
	}
	s.persist(ctx, snapshot)
	return snapshot, nil
}

// Cancel lets the group leader withdraw an unclaimed ticket.
func (s *TicketService) Cancel(ctx context.Context, ticketID int, identity string) (*domain.TicketSnapshot, error) {
	if err := s.manager.CancelByRequester(ctx, ticketID, identity); err != nil {
		return nil, mapLifecycleError(err)
	}
	snapshot := s.liveSnapshot(ticketID)
	s.persist(ctx, snapshot)
	return snapshot, nil
}

// ForceClose closes a ticket administratively.
func (s *TicketService) ForceClose(ctx context.Context, ticketID int) (*domain.TicketSnapshot, error) {
	if err := s.manager.Close(ctx, ticketID, domain.CloseReasonStaff); err != nil {
		return nil, mapLifecycleError(err)
	}
	snapshot := s.liveSnapshot(ticketID)
	if snapshot != nil && snapshot.CommChannel != nil && s.presence != nil {
		if err := s.presence.Clear(ctx, *snapshot.CommChannel); err != nil {
			s.logger.Warn("presence clear failed", zap.Error(err))
		}
	}
	s.persist(ctx, snapshot)
	return snapshot, nil
}

// SetGCExclusion toggles garbage-collection suspension for a ticket.
func (s *TicketService) SetGCExclusion(ctx context.Context, ticketID int, excluded bool) (*domain.TicketSnapshot, error) {
	if err := s.manager.SetGCExclusion(ticketID, excluded); err != nil {
		return nil, mapLifecycleError(err)
	}
	snapshot := s.liveSnapshot(ticketID)
	s.persist(ctx, snapshot)
	return snapshot, nil
}

// Get returns a ticket, live or persisted.
func (s *TicketService) Get(ctx context.Context, ticketID int) (*domain.TicketSnapshot, error) {
	if snapshot := s.liveSnapshot(ticketID); snapshot != nil {
		return snapshot, nil
	}
	if s.snapshots == nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	snapshot, err := s.snapshots.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return snapshot, nil
}

// List returns tickets, from the store when configured or live otherwise.
func (s *TicketService) List(ctx context.Context, filter repository.SnapshotFilter) ([]domain.TicketSnapshot, error) {
	if s.snapshots != nil {
		snapshots, err := s.snapshots.List(ctx, filter)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return snapshots, nil
	}
	live := s.manager.List()
	out := make([]domain.TicketSnapshot, 0, len(live))
	for _, ticket := range live {
		out = append(out, *ticket.Snapshot())
	}
	return out, nil
}

func (s *TicketService) liveSnapshot(ticketID int) *domain.TicketSnapshot {
	ticket, ok := s.manager.Get(ticketID)
	if !ok {
		return nil
	}
	return ticket.Snapshot()
}

func (s *TicketService) persist(ctx context.Context, snapshot *domain.TicketSnapshot) {
	if s.snapshots == nil || snapshot == nil {
		return
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		s.logger.Warn("snapshot persistence failed",
			zap.Int("ticket_id", snapshot.ID),
			zap.Error(err))
	}
}

func mapLifecycleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lifecycle.ErrTicketNotFound):
		return apperrors.NewNotFound("ticket", nil)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return apperrors.NewInvalidTransition(err.Error(), nil)
	case errors.Is(err, lifecycle.ErrSelfAssist),
		errors.Is(err, lifecycle.ErrAlreadyParticipant),
		errors.Is(err, lifecycle.ErrNotParticipant):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.Is(err, lifecycle.ErrNotLeader):
		return apperrors.NewForbidden(err.Error())
	case errors.Is(err, lifecycle.ErrEmptyQuestion),
		errors.Is(err, lifecycle.ErrEmptyGroup):
		return apperrors.NewValidationError(err.Error(), nil)
	default:
		return apperrors.NewNotificationFailure(err)
	}
}
