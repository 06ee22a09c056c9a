package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/http/middleware"
)

// Dispatcher delivers outbound messages on a channel and records them.
type Dispatcher struct {
	WhatsApp WhatsAppGateway
	Email    EmailGateway
	Messages entity.MessageRepositoryInterface
	logger   *slog.Logger
}

func NewDispatcher(
	whatsApp WhatsAppGateway,
	email EmailGateway,
	messages entity.MessageRepositoryInterface,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		WhatsApp: whatsApp,
		Email:    email,
		Messages: messages,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// Deliver sends msg on one channel without recording it.
func (d *Dispatcher) Deliver(ctx context.Context, c *entity.Contact, ch entity.Channel, msg entity.Outbound) (entity.Delivery, error) {
	var (
		delivery entity.Delivery
		err      error
	)

	switch ch {
	case entity.ChannelWhatsApp:
		if !c.Capabilities().HasPhone {
			return delivery, &DomainError{Code: CodeNoChannel, Message: "contact has no phone"}
		}
		delivery, err = d.WhatsApp.Send(ctx, c.Phone, msg)
		delivery.Channel = entity.ChannelWhatsApp
	case entity.ChannelEmail:
		if !c.Capabilities().HasEmail {
			return delivery, &DomainError{Code: CodeNoChannel, Message: "contact has no email"}
		}
		var body string
		body, err = d.Email.Send(ctx, c.Email, c.FullName(), msg)
		delivery = entity.Delivery{Channel: entity.ChannelEmail, Body: body, Status: entity.MessageStatusSent}
	default:
		return delivery, &DomainError{Code: CodeNoChannel, Message: "unknown channel " + string(ch)}
	}

	if err != nil {
		middleware.RecordOutboundMessage(string(ch), msg.RecordName(), "error")
		d.logger.ErrorContext(ctx, "outbound send failed",
			slog.Int64("contact_id", c.ID),
			slog.String("channel", string(ch)),
			slog.String("stage", msg.RecordName()),
			slog.String("error", err.Error()),
		)
		return delivery, upstreamError("failed to send "+string(ch)+" message", err)
	}

	middleware.RecordOutboundMessage(string(ch), msg.RecordName(), "success")
	return delivery, nil
}

// DeliverPreferred tries WhatsApp first when the contact has a phone and
// falls back to email when the send fails or there is no phone.
func (d *Dispatcher) DeliverPreferred(ctx context.Context, c *entity.Contact, msg entity.Outbound) (entity.Delivery, error) {
	caps := c.Capabilities()
	if caps.HasPhone {
		delivery, err := d.Deliver(ctx, c, entity.ChannelWhatsApp, msg)
		if err == nil || !caps.HasEmail {
			return delivery, err
		}
		d.logger.WarnContext(ctx, "whatsapp failed, falling back to email", slog.Int64("contact_id", c.ID))
	}
	return d.Deliver(ctx, c, entity.ChannelEmail, msg)
}

func (d *Dispatcher) Send(ctx context.Context, c *entity.Contact, ch entity.Channel, msg entity.Outbound) (*entity.Message, error) {
	delivery, err := d.Deliver(ctx, c, ch, msg)
	if err != nil {
		return nil, err
	}
	return d.record(ctx, c, msg, delivery)
}

func (d *Dispatcher) SendPreferred(ctx context.Context, c *entity.Contact, msg entity.Outbound) (*entity.Message, error) {
	delivery, err := d.DeliverPreferred(ctx, c, msg)
	if err != nil {
		return nil, err
	}
	return d.record(ctx, c, msg, delivery)
}

// SendAll sends on every channel the contact has. It fails only when no
// channel succeeded.
func (d *Dispatcher) SendAll(ctx context.Context, c *entity.Contact, msg entity.Outbound) ([]*entity.Message, error) {
	caps := c.Capabilities()
	var channels []entity.Channel
	if caps.HasPhone {
		channels = append(channels, entity.ChannelWhatsApp)
	}
	if caps.HasEmail {
		channels = append(channels, entity.ChannelEmail)
	}

	var (
		sent []*entity.Message
		errs []error
	)
	for _, ch := range channels {
		m, err := d.Send(ctx, c, ch, msg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sent = append(sent, m)
	}

	if len(sent) == 0 {
		if len(errs) == 0 {
			return nil, &DomainError{Code: CodeNoChannel, Message: "contact has neither phone nor email"}
		}
		return nil, errors.Join(errs...)
	}
	return sent, nil
}

// Notify sends a WhatsApp text to a phone that may not belong to a known
// contact. Nothing is recorded.
func (d *Dispatcher) Notify(ctx context.Context, phone, text string) error {
	msg := SupportMessage(text)
	if _, err := d.WhatsApp.Send(ctx, phone, msg); err != nil {
		middleware.RecordOutboundMessage(string(entity.ChannelWhatsApp), msg.RecordName(), "error")
		return upstreamError("failed to send whatsapp message", err)
	}
	middleware.RecordOutboundMessage(string(entity.ChannelWhatsApp), msg.RecordName(), "success")
	return nil
}

func (d *Dispatcher) record(ctx context.Context, c *entity.Contact, msg entity.Outbound, delivery entity.Delivery) (*entity.Message, error) {
	m := &entity.Message{
		ContactID:         c.ID,
		Channel:           delivery.Channel,
		Stage:             msg.RecordName(),
		Body:              delivery.Body,
		WhatsAppMessageID: delivery.WhatsAppMessageID,
		ProviderMessageID: delivery.ProviderMessageID,
		ProviderContactID: delivery.ProviderContactID,
		Status:            delivery.Status,
	}
	if m.Body == "" {
		m.Body = msg.Text
	}

	if err := d.Messages.Save(ctx, m); err != nil {
		// the message already went out; losing the row only weakens history
		d.logger.ErrorContext(ctx, "failed to record sent message",
			slog.Int64("contact_id", c.ID),
			slog.String("stage", m.Stage),
			slog.String("error", err.Error()),
		)
		return m, storageError("failed to record message", err)
	}
	return m, nil
}
