package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/http/middleware"
)

const (
	unknownValue    = "unknown"
	defaultTemplate = "days4"
)

type TrackClickInput struct {
	Email     string
	Response  string
	Template  string
	UserAgent string
	Referrer  string
}

type TrackClickOutput struct {
	RedirectURL string
}

// TrackClickUseCase records an email link click and, when it carries a reply,
// feeds it to the conversation as an email-channel event.
type TrackClickUseCase struct {
	Contacts     entity.ContactRepositoryInterface
	Clicks       entity.ClickRepositoryInterface
	Conversation *ConversationUseCase
	HomeURL      string
	SearchURL    string
	logger       *slog.Logger
}

func NewTrackClickUseCase(
	contacts entity.ContactRepositoryInterface,
	clicks entity.ClickRepositoryInterface,
	conversation *ConversationUseCase,
	homeURL, searchURL string,
	logger *slog.Logger,
) *TrackClickUseCase {
	return &TrackClickUseCase{
		Contacts:     contacts,
		Clicks:       clicks,
		Conversation: conversation,
		HomeURL:      homeURL,
		SearchURL:    searchURL,
		logger:       logger.With(slog.String("component", "track_click")),
	}
}

func (uc *TrackClickUseCase) Execute(ctx context.Context, in TrackClickInput) TrackClickOutput {
	in = withClickDefaults(in)
	log := uc.logger.With(slog.String("email", in.Email), slog.String("template", in.Template))

	contact, err := uc.Contacts.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, entity.ErrContactNotFound) {
		log.ErrorContext(ctx, "contact lookup failed", slog.String("error", err.Error()))
	}

	click := &entity.ClickEvent{
		Email:     in.Email,
		Stage:     in.Template,
		Response:  in.Response,
		UserAgent: in.UserAgent,
		Referrer:  in.Referrer,
	}
	if contact != nil {
		id := contact.ID
		click.ContactID = &id
	}
	if err := uc.Clicks.Save(ctx, click); err != nil {
		log.ErrorContext(ctx, "click not recorded", slog.String("error", err.Error()))
	}

	if contact == nil {
		log.ErrorContext(ctx, "contact not found for click")
		middleware.RecordInboundEvent("click", "contact_not_found")
		return TrackClickOutput{RedirectURL: uc.HomeURL}
	}

	if in.Response == "" {
		middleware.RecordInboundEvent("click", "ignored")
		return TrackClickOutput{RedirectURL: uc.SearchURL}
	}

	_, err = uc.Conversation.Execute(ctx, RespondInput{
		Contact: contact,
		Stage:   entity.ParseStage(in.Template),
		Token:   ParseToken(in.Response),
		Channel: entity.ChannelEmail,
	})
	switch {
	case err == nil:
		middleware.RecordInboundEvent("click", "processed")
	case IsDomainError(err):
		middleware.RecordInboundEvent("click", "ignored")
	default:
		log.ErrorContext(ctx, "click reply not handled", slog.String("error", err.Error()))
		middleware.RecordInboundEvent("click", "error")
	}

	return TrackClickOutput{RedirectURL: uc.SearchURL}
}

func withClickDefaults(in TrackClickInput) TrackClickInput {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		in.Email = unknownValue
	}
	in.Template = strings.TrimSpace(in.Template)
	if in.Template == "" {
		in.Template = defaultTemplate
	}
	if in.UserAgent == "" {
		in.UserAgent = unknownValue
	}
	if in.Referrer == "" {
		in.Referrer = unknownValue
	}
	in.Response = strings.TrimSpace(in.Response)
	return in
}
