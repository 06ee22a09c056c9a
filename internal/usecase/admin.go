package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/xavierca1/lead-followup/internal/entity"
)

type Days4ResponseInput struct {
	Email    string `json:"email"`
	Response string `json:"response"`
}

type SendErrorMessageInput struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type MessageHistoryOutput struct {
	Contact  *entity.Contact  `json:"contact"`
	Messages []entity.Message `json:"messages"`
}

// AdminUseCase holds the manual triggers and read paths used by operators.
type AdminUseCase struct {
	Contacts     entity.ContactRepositoryInterface
	Messages     entity.MessageRepositoryInterface
	Conversation *ConversationUseCase
	Dispatcher   *Dispatcher
	logger       *slog.Logger
}

func NewAdminUseCase(
	contacts entity.ContactRepositoryInterface,
	messages entity.MessageRepositoryInterface,
	conversation *ConversationUseCase,
	dispatcher *Dispatcher,
	logger *slog.Logger,
) *AdminUseCase {
	return &AdminUseCase{
		Contacts:     contacts,
		Messages:     messages,
		Conversation: conversation,
		Dispatcher:   dispatcher,
		logger:       logger.With(slog.String("component", "admin")),
	}
}

// HandleDays4Response feeds a days4 answer collected outside the provider
// into the conversation.
func (uc *AdminUseCase) HandleDays4Response(ctx context.Context, in Days4ResponseInput) (*RespondOutput, error) {
	contact, err := uc.findByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	ch := entity.ChannelEmail
	if contact.Capabilities().HasPhone {
		ch = entity.ChannelWhatsApp
	}

	return uc.Conversation.Execute(ctx, RespondInput{
		Contact: contact,
		Stage:   entity.StageDays4,
		Token:   ParseToken(strings.ToLower(in.Response)),
		Channel: ch,
	})
}

func (uc *AdminUseCase) ResendSellerSelection(ctx context.Context, phone string) ([]*entity.Message, error) {
	contact, err := uc.findByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	ch := entity.ChannelWhatsApp
	if !contact.Capabilities().HasPhone {
		ch = entity.ChannelEmail
	}
	return uc.Conversation.ResendSellerSelection(ctx, contact, ch)
}

func (uc *AdminUseCase) SendErrorMessage(ctx context.Context, in SendErrorMessageInput) error {
	uc.logger.InfoContext(ctx, "sending support message", slog.String("phone", in.Phone))
	return uc.Dispatcher.Notify(ctx, entity.NormalizePhone(in.Phone), in.Message)
}

func (uc *AdminUseCase) MessageHistory(ctx context.Context, phone string) (*MessageHistoryOutput, error) {
	contact, err := uc.findByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	return uc.history(ctx, contact)
}

func (uc *AdminUseCase) ContactMessages(ctx context.Context, contactID int64) (*MessageHistoryOutput, error) {
	contact, err := uc.Contacts.FindByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, entity.ErrContactNotFound) {
			return nil, contactNotFound("id")
		}
		return nil, storageError("failed to load contact", err)
	}
	return uc.history(ctx, contact)
}

// MessageStatus asks the provider for the latest message of a provider
// contact.
func (uc *AdminUseCase) MessageStatus(ctx context.Context, providerContactID string) (*entity.ProviderMessage, error) {
	m, err := uc.Dispatcher.WhatsApp.LastMessage(ctx, providerContactID)
	if err != nil {
		return nil, upstreamError("failed to fetch message status", err)
	}
	if m == nil {
		return nil, &DomainError{Code: CodeNoTransition, Message: "no messages for contact"}
	}
	return m, nil
}

func (uc *AdminUseCase) history(ctx context.Context, contact *entity.Contact) (*MessageHistoryOutput, error) {
	messages, err := uc.Messages.ListByContact(ctx, contact.ID)
	if err != nil {
		return nil, storageError("failed to load messages", err)
	}
	if messages == nil {
		messages = []entity.Message{}
	}
	return &MessageHistoryOutput{Contact: contact, Messages: messages}, nil
}

func (uc *AdminUseCase) findByPhone(ctx context.Context, phone string) (*entity.Contact, error) {
	contact, err := uc.Contacts.FindByPhone(ctx, entity.NormalizePhone(phone))
	if err != nil {
		if errors.Is(err, entity.ErrContactNotFound) {
			return nil, contactNotFound("phone")
		}
		return nil, storageError("failed to load contact", err)
	}
	return contact, nil
}

func (uc *AdminUseCase) findByEmail(ctx context.Context, email string) (*entity.Contact, error) {
	contact, err := uc.Contacts.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, entity.ErrContactNotFound) {
			return nil, contactNotFound("email")
		}
		return nil, storageError("failed to load contact", err)
	}
	return contact, nil
}
