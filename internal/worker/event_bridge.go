package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/hackdesk/internal/events"
)

// EventBridge relays lifecycle events onto an AMQP topic exchange so
// external consumers (dashboards, escalation bots) can follow ticket
// activity without polling the API.
type EventBridge struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewEventBridge connects to the broker and declares the exchange.
func NewEventBridge(url, exchange string, logger *zap.Logger) (*EventBridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("broker dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("broker channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	return &EventBridge{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// RegisterHandlers subscribes the bridge to every lifecycle event.
func (b *EventBridge) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketSubmitted,
		events.EventTicketClaimed,
		events.EventTicketHelperJoined,
		events.EventTicketParticipantLeft,
		events.EventTicketGCPrompted,
		events.EventTicketClosed,
	} {
		dispatcher.Subscribe(eventType, b.relay)
	}
}

func (b *EventBridge) relay(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("event marshal failed", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	routingKey := "ticket." + string(event.Type)
	err = b.channel.PublishWithContext(ctx, b.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Timestamp,
		Body:         body,
	})
	if err != nil {
		b.logger.Warn("event publish failed",
			zap.String("event_id", event.ID),
			zap.String("routing_key", routingKey),
			zap.Error(err))
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (b *EventBridge) Close() {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}
