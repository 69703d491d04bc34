package event

import (
	"context"

	"meetroom/config"
	"meetroom/infras/kafka"
	"meetroom/infras/otel"
	"meetroom/internal/domains/booking/model"
	"meetroom/shared/constant"
	"meetroom/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	TypeCreated       = "booking.created"
	TypeUpdated       = "booking.updated"
	TypeStatusChanged = "booking.status_changed"
	TypeRejected      = "booking.rejected"
	TypeDeleted       = "booking.deleted"
)

type Event struct {
	Type      string `json:"type"`
	BookingID string `json:"booking_id"`
	RoomID    string `json:"room_id"`
	Status    string `json:"status"`
	ActorID   string `json:"actor_id"`
	At        string `json:"at"`
}

func New(eventType string, booking model.Booking, actorID string) Event {
	return Event{
		Type:      eventType,
		BookingID: booking.ID,
		RoomID:    booking.RoomID,
		Status:    string(booking.Status),
		ActorID:   actorID,
		At:        timezone.Now().Format(constant.DateFormat),
	}
}

// Publisher emits booking lifecycle events after a write has been committed.
// Delivery failures are logged and never reported to the caller.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

type publisherImpl struct {
	client kafka.Client
	topic  string
	otel   otel.Otel
}

func NewPublisher(cfg *config.Config, client kafka.Client, otel otel.Otel) Publisher {
	if !cfg.Kafka.Enable || client == nil {
		return nopPublisher{}
	}

	return &publisherImpl{
		client: client,
		topic:  cfg.Kafka.BookingTopic,
		otel:   otel,
	}
}

func (p *publisherImpl) Publish(ctx context.Context, events ...Event) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".booking.Publish")
	defer scope.End()

	if len(events) == 0 {
		return
	}

	messages := make([]kafka.Message, len(events))
	for i, evt := range events {
		// keyed by room so events of one room stay ordered within a partition
		messages[i] = kafka.Message{Key: evt.RoomID, Value: evt}
	}

	if err := p.client.SendMessages(ctx, p.topic, messages...); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("topic", p.topic).Int("count", len(events)).Msg("failed to publish booking events")
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...Event) {}
