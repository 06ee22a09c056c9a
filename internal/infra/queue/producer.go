package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliveryCheckPayload asks a worker to look up the provider status of a
// message that was just sent.
type DeliveryCheckPayload struct {
	ID                string    `json:"id"`
	MessageID         int64     `json:"message_id"`
	ContactID         int64     `json:"contact_id"`
	ProviderContactID string    `json:"sendpulse_contact_id"`
	Stage             string    `json:"template_name"`
	ScheduledAt       time.Time `json:"scheduled_at"`
}

type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

// PublishDeliveryCheck parks the payload on the wait queue; it reaches the
// work queue once the queue TTL expires.
func (p *RabbitMQProducer) PublishDeliveryCheck(ctx context.Context, payload DeliveryCheckPayload) error {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	if payload.ScheduledAt.IsZero() {
		payload.ScheduledAt = time.Now().UTC()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		WaitRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    payload.ID,
			Timestamp:    payload.ScheduledAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to RabbitMQ: %w", err)
	}
	return nil
}
