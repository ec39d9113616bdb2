package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hackdesk/internal/lifecycle"
)

// loggingPort decorates a NotificationPort with structured logging of every
// outbound side effect.
type loggingPort struct {
	next   lifecycle.NotificationPort
	logger *zap.Logger
}

// WithLogging wraps a port so every delivery is logged.
func WithLogging(next lifecycle.NotificationPort, logger *zap.Logger) lifecycle.NotificationPort {
	return &loggingPort{next: next, logger: logger}
}

func (p *loggingPort) PostDispatchMessage(ctx context.Context, specialty string, summary lifecycle.DispatchSummary) (lifecycle.MessageHandle, error) {
	handle, err := p.next.PostDispatchMessage(ctx, specialty, summary)
	p.logger.Debug("dispatch message posted",
		zap.Int("ticket_id", summary.TicketID),
		zap.String("specialty", specialty),
		zap.String("mention", summary.Mention),
		zap.Error(err))
	return handle, err
}

func (p *loggingPort) EditMessage(ctx context.Context, handle lifecycle.MessageHandle, fields lifecycle.MessageFields) error {
	err := p.next.EditMessage(ctx, handle, fields)
	p.logger.Debug("dispatch message edited",
		zap.String("handle", string(handle)),
		zap.String("status", string(fields.Status)),
		zap.Error(err))
	return err
}

func (p *loggingPort) NotifyUser(ctx context.Context, identity, text string) error {
	err := p.next.NotifyUser(ctx, identity, text)
	p.logger.Debug("user notified", zap.String("identity", identity), zap.Error(err))
	return err
}

func (p *loggingPort) NotifyGroup(ctx context.Context, identities []string, text string) error {
	err := p.next.NotifyGroup(ctx, identities, text)
	p.logger.Debug("group notified", zap.Int("recipients", len(identities)), zap.Error(err))
	return err
}

func (p *loggingPort) CreateCommChannel(ctx context.Context, participants []string) (lifecycle.ChannelHandle, error) {
	handle, err := p.next.CreateCommChannel(ctx, participants)
	p.logger.Info("comm channel created",
		zap.String("channel", string(handle)),
		zap.Int("participants", len(participants)),
		zap.Error(err))
	return handle, err
}

func (p *loggingPort) GrantAccess(ctx context.Context, channel lifecycle.ChannelHandle, identity string) error {
	err := p.next.GrantAccess(ctx, channel, identity)
	p.logger.Debug("access granted", zap.String("channel", string(channel)), zap.String("identity", identity), zap.Error(err))
	return err
}

func (p *loggingPort) RevokeAccess(ctx context.Context, channel lifecycle.ChannelHandle, identity string) error {
	err := p.next.RevokeAccess(ctx, channel, identity)
	p.logger.Debug("access revoked", zap.String("channel", string(channel)), zap.String("identity", identity), zap.Error(err))
	return err
}

func (p *loggingPort) DestroyChannel(ctx context.Context, channel lifecycle.ChannelHandle) error {
	err := p.next.DestroyChannel(ctx, channel)
	p.logger.Info("comm channel destroyed", zap.String("channel", string(channel)), zap.Error(err))
	return err
}

func (p *loggingPort) PostToChannel(ctx context.Context, channel lifecycle.ChannelHandle, text string) error {
	err := p.next.PostToChannel(ctx, channel, text)
	p.logger.Debug("channel message posted", zap.String("channel", string(channel)), zap.Error(err))
	return err
}

func (p *loggingPort) AwaitResponse(ctx context.Context, surface lifecycle.ChannelHandle, filter lifecycle.ResponseFilter, timeout time.Duration) (*lifecycle.Response, error) {
	return p.next.AwaitResponse(ctx, surface, filter, timeout)
}

func (p *loggingPort) ObserveIdle(channel lifecycle.ChannelHandle, idle time.Duration, fn func()) func() {
	return p.next.ObserveIdle(channel, idle, fn)
}

func (p *loggingPort) BroadcastFallback(ctx context.Context, text string) error {
	err := p.next.BroadcastFallback(ctx, text)
	p.logger.Warn("fallback broadcast", zap.Error(err))
	return err
}
