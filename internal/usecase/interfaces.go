package usecase

import (
	"context"

	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/queue"
)

type WhatsAppGateway interface {
	Send(ctx context.Context, phone string, msg entity.Outbound) (entity.Delivery, error)
	LastMessage(ctx context.Context, providerContactID string) (*entity.ProviderMessage, error)
}

type EmailGateway interface {
	// Send renders and delivers msg, returning the rendered body.
	Send(ctx context.Context, to, recipientName string, msg entity.Outbound) (string, error)
}

type DeliveryCheckPublisher interface {
	PublishDeliveryCheck(ctx context.Context, payload queue.DeliveryCheckPayload) error
}

// ContactLocker serialises work on one contact across processes.
type ContactLocker interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}
