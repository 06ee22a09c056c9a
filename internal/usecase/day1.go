package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/queue"
)

type SendDay1Output struct {
	Message *entity.Message `json:"message"`
	// CheckScheduled is true when a delivery check was queued.
	CheckScheduled bool `json:"delivery_check_scheduled"`
}

// SendDay1UseCase opens the conversation with the day1 template and queues a
// delivery check for WhatsApp sends.
type SendDay1UseCase struct {
	Contacts     entity.ContactRepositoryInterface
	Sellers      entity.SellerRepositoryInterface
	Messages     entity.MessageRepositoryInterface
	Dispatcher   *Dispatcher
	Conversation *ConversationUseCase
	// Checks is optional; without it no delivery check is scheduled.
	Checks DeliveryCheckPublisher
	logger *slog.Logger
}

func NewSendDay1UseCase(
	contacts entity.ContactRepositoryInterface,
	sellers entity.SellerRepositoryInterface,
	messages entity.MessageRepositoryInterface,
	dispatcher *Dispatcher,
	conversation *ConversationUseCase,
	checks DeliveryCheckPublisher,
	logger *slog.Logger,
) *SendDay1UseCase {
	return &SendDay1UseCase{
		Contacts:     contacts,
		Sellers:      sellers,
		Messages:     messages,
		Dispatcher:   dispatcher,
		Conversation: conversation,
		Checks:       checks,
		logger:       logger.With(slog.String("component", "day1")),
	}
}

func (uc *SendDay1UseCase) Execute(ctx context.Context, contactID int64) (*SendDay1Output, error) {
	contact, err := uc.Contacts.FindByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, entity.ErrContactNotFound) {
			return nil, contactNotFound("id")
		}
		return nil, storageError("failed to load contact", err)
	}

	sellers, err := uc.Sellers.ListForContact(ctx, contact.ID)
	if err != nil {
		return nil, storageError("failed to load sellers", err)
	}
	if len(sellers) == 0 {
		return nil, &DomainError{Code: CodeValidation, Message: "contact has no sellers"}
	}

	m, err := uc.Dispatcher.SendPreferred(ctx, contact, Day1Message(contact, sellers[0]))
	if err != nil {
		return nil, err
	}
	out := &SendDay1Output{Message: m}

	if m.Channel != entity.ChannelWhatsApp || uc.Checks == nil || m.ID == 0 {
		return out, nil
	}

	err = uc.Checks.PublishDeliveryCheck(ctx, queue.DeliveryCheckPayload{
		MessageID:         m.ID,
		ContactID:         contact.ID,
		ProviderContactID: m.ProviderContactID,
		Stage:             m.Stage,
	})
	if err != nil {
		// the message is out; only the undeliverable fallback is lost
		uc.logger.ErrorContext(ctx, "delivery check not scheduled",
			slog.Int64("message_id", m.ID),
			slog.String("error", err.Error()),
		)
		return out, nil
	}
	out.CheckScheduled = true
	return out, nil
}

// CheckDelivery records the provider's status for a sent message and resends
// day1 by email when WhatsApp reports it undeliverable.
func (uc *SendDay1UseCase) CheckDelivery(ctx context.Context, p queue.DeliveryCheckPayload) error {
	if p.ProviderContactID == "" {
		uc.logger.WarnContext(ctx, "delivery check without provider contact", slog.Int64("message_id", p.MessageID))
		return nil
	}

	last, err := uc.Dispatcher.WhatsApp.LastMessage(ctx, p.ProviderContactID)
	if err != nil {
		return upstreamError("failed to fetch message status", err)
	}
	if last == nil {
		return nil
	}

	if err := uc.Messages.UpdateStatus(ctx, p.MessageID, last.Status, statusDescription(last.Status)); err != nil {
		return storageError("failed to update message status", err)
	}

	if last.Status != entity.MessageStatusUndeliverable {
		return nil
	}

	contact, err := uc.Contacts.FindByID(ctx, p.ContactID)
	if err != nil {
		return storageError("failed to load contact", err)
	}

	_, err = uc.Conversation.Execute(ctx, RespondInput{
		Contact: contact,
		Stage:   entity.ParseStage(p.Stage),
		Token:   UndeliverableToken(),
		Channel: entity.ChannelWhatsApp,
	})
	if IsDomainError(err) {
		// no email on file or not a day1 message: nothing to fall back to
		uc.logger.WarnContext(ctx, "undeliverable message left as is",
			slog.Int64("contact_id", p.ContactID),
			slog.String("reason", err.Error()),
		)
		return nil
	}
	return err
}

func statusDescription(s entity.MessageStatus) string {
	switch s {
	case entity.MessageStatusPending:
		return "pending"
	case entity.MessageStatusSent:
		return "sent"
	case entity.MessageStatusDelivered:
		return "delivered"
	case entity.MessageStatusRead:
		return "read"
	case entity.MessageStatusFailed:
		return "failed"
	case entity.MessageStatusUndeliverable:
		return "Message was not delivered"
	default:
		return "unknown"
	}
}
