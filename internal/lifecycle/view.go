package lifecycle

import (
	"context"
	"fmt"

	"github.com/spec-kit/hackdesk/internal/domain"
)

// dispatchView renders ticket announcements through the notification port.
type dispatchView struct {
	port NotificationPort
}

// NewDispatchView returns the default TicketView backed by a NotificationPort.
func NewDispatchView(port NotificationPort) TicketView {
	return &dispatchView{port: port}
}

func (v *dispatchView) Publish(ctx context.Context, snapshot *domain.TicketSnapshot, mention string) (MessageHandle, error) {
	return v.port.PostDispatchMessage(ctx, snapshot.Specialty, DispatchSummary{
		TicketID:  snapshot.ID,
		Question:  snapshot.Question,
		Specialty: snapshot.Specialty,
		Mention:   mention,
		Requester: snapshot.Leader(),
	})
}

func (v *dispatchView) Update(ctx context.Context, snapshot *domain.TicketSnapshot) error {
	if snapshot.DispatchMessage == nil {
		return nil
	}
	return v.port.EditMessage(ctx, MessageHandle(*snapshot.DispatchMessage), MessageFields{
		Status:  snapshot.Status,
		Helpers: snapshot.Helpers,
	})
}

func (v *dispatchView) Finalize(ctx context.Context, snapshot *domain.TicketSnapshot) error {
	if snapshot.DispatchMessage == nil {
		return nil
	}
	note := "ticket finalized"
	if snapshot.CloseReason != nil {
		note = fmt.Sprintf("ticket finalized: %s", *snapshot.CloseReason)
	}
	return v.port.EditMessage(ctx, MessageHandle(*snapshot.DispatchMessage), MessageFields{
		Status:  snapshot.Status,
		Helpers: snapshot.Helpers,
		Note:    note,
	})
}
