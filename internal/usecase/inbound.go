package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/http/middleware"
)

// InboundEvent is one provider webhook item reduced to what the machine needs.
type InboundEvent struct {
	Phone       string
	Name        string
	MessageType string
	Token       string
	Text        string
}

type InboundOutput struct {
	Processed int `json:"processed"`
	Ignored   int `json:"ignored"`
	Failed    int `json:"failed"`
}

// HandleInboundUseCase routes provider webhook events. Events are not
// deduplicated: a replayed delivery is processed again.
type HandleInboundUseCase struct {
	Contacts     entity.ContactRepositoryInterface
	Messages     entity.MessageRepositoryInterface
	Conversation *ConversationUseCase
	Dispatcher   *Dispatcher
	logger       *slog.Logger
}

func NewHandleInboundUseCase(
	contacts entity.ContactRepositoryInterface,
	messages entity.MessageRepositoryInterface,
	conversation *ConversationUseCase,
	dispatcher *Dispatcher,
	logger *slog.Logger,
) *HandleInboundUseCase {
	return &HandleInboundUseCase{
		Contacts:     contacts,
		Messages:     messages,
		Conversation: conversation,
		Dispatcher:   dispatcher,
		logger:       logger.With(slog.String("component", "inbound")),
	}
}

func (uc *HandleInboundUseCase) Execute(ctx context.Context, events []InboundEvent) InboundOutput {
	var out InboundOutput
	for _, ev := range events {
		outcome := uc.handle(ctx, ev)
		middleware.RecordInboundEvent("webhook", outcome)
		switch outcome {
		case "processed":
			out.Processed++
		case "ignored":
			out.Ignored++
		default:
			out.Failed++
		}
	}
	return out
}

func (uc *HandleInboundUseCase) handle(ctx context.Context, ev InboundEvent) string {
	log := uc.logger.With(slog.String("phone", ev.Phone), slog.String("type", ev.MessageType))

	if strings.TrimSpace(ev.Token) == "" {
		if ev.Text != "" {
			log.InfoContext(ctx, "text message received", slog.String("text", ev.Text))
		}
		return "ignored"
	}

	contact, err := uc.Contacts.FindByPhone(ctx, ev.Phone)
	if err != nil {
		if errors.Is(err, entity.ErrContactNotFound) {
			log.ErrorContext(ctx, "contact not found for inbound reply")
			if err := uc.Dispatcher.Notify(ctx, ev.Phone, ContactNotFoundText); err != nil {
				log.ErrorContext(ctx, "apology not sent", slog.String("error", err.Error()))
			}
			return "contact_not_found"
		}
		log.ErrorContext(ctx, "contact lookup failed", slog.String("error", err.Error()))
		return "error"
	}

	last, err := uc.Messages.LatestByStages(ctx, contact.ID, entity.PromptStageNames())
	if err != nil {
		if errors.Is(err, entity.ErrNoMessages) {
			log.WarnContext(ctx, "reply without a prompt on record", slog.Int64("contact_id", contact.ID))
			return "ignored"
		}
		log.ErrorContext(ctx, "failed to load last prompt", slog.String("error", err.Error()))
		return "error"
	}

	_, err = uc.Conversation.Execute(ctx, RespondInput{
		Contact: contact,
		Stage:   entity.ParseStage(last.Stage),
		Token:   ParseToken(ev.Token),
		Channel: entity.ChannelWhatsApp,
	})
	if err != nil {
		if IsDomainError(err) {
			return "ignored"
		}
		log.ErrorContext(ctx, "reply not handled", slog.String("error", err.Error()))
		return "error"
	}
	return "processed"
}
