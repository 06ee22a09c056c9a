package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xavierca1/lead-followup/internal/entity"
)

type RespondInput struct {
	Contact *entity.Contact
	Stage   entity.Stage
	Token   Token
	// Channel is where the event came from: WhatsApp webhook or email click.
	Channel entity.Channel
}

type RespondOutput struct {
	Decision Decision
	Sent     []*entity.Message
}

// ConversationUseCase applies a Decision: it records the reply and sends the
// next prompt.
type ConversationUseCase struct {
	Sellers    entity.SellerRepositoryInterface
	Responses  entity.ResponseRepositoryInterface
	Dispatcher *Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewConversationUseCase(
	sellers entity.SellerRepositoryInterface,
	responses entity.ResponseRepositoryInterface,
	dispatcher *Dispatcher,
	logger *slog.Logger,
) *ConversationUseCase {
	return &ConversationUseCase{
		Sellers:    sellers,
		Responses:  responses,
		Dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "conversation")),
		now:        time.Now,
	}
}

func (uc *ConversationUseCase) Execute(ctx context.Context, in RespondInput) (*RespondOutput, error) {
	if in.Contact == nil {
		return nil, contactNotFound("inbound event")
	}

	decision, err := Decide(in.Stage, in.Token, in.Contact.Capabilities())
	if err != nil {
		uc.logger.WarnContext(ctx, "reply dropped",
			slog.Int64("contact_id", in.Contact.ID),
			slog.String("stage", in.Stage.String()),
			slog.String("token", in.Token.Value),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	uc.logger.InfoContext(ctx, "transition",
		slog.Int64("contact_id", in.Contact.ID),
		slog.String("from", decision.From.String()),
		slog.String("to", decision.Next.String()),
		slog.String("token", in.Token.Value),
	)

	out := &RespondOutput{Decision: decision}
	var msg entity.Outbound

	switch decision.Action {
	case ActionSendSellerSelection:
		if decision.PersistResponse {
			if err := uc.saveAnswer(ctx, in, entity.ResponseDays4); err != nil {
				return nil, err
			}
		}
		sent, err := uc.sendSellerSelection(ctx, in.Contact, decision.Next, uc.replyChannel(in, decision))
		out.Sent = sent
		return out, err

	case ActionSendReasonPrompt:
		if err := uc.saveAnswer(ctx, in, entity.ResponseDays4); err != nil {
			return nil, err
		}
		msg = NoContactReasonMessage()

	case ActionRecordSellerChoice:
		seller, err := uc.matchSeller(ctx, in.Contact.ID, in.Token.Value)
		if err != nil {
			return nil, err
		}
		if err := uc.save(ctx, in.Contact.ID, entity.ResponseSellerSelected, seller.FullName(), entity.SellerChoiceExtra{
			SellerID:  seller.ID,
			Name:      seller.Name,
			LastName:  seller.LastName,
			Email:     seller.Email,
			Phone:     seller.Phone,
			Timestamp: uc.now(),
		}); err != nil {
			return nil, err
		}
		msg = CommunicationCheckMessage(*seller)

	case ActionRecordReason:
		if err := uc.save(ctx, in.Contact.ID, entity.ResponseNoContact, in.Token.Value, entity.ReasonExtra{
			Reason:    in.Token.Value,
			Timestamp: uc.now(),
		}); err != nil {
			return nil, err
		}
		msg = FeedbackThanksMessage()

	case ActionRecordCommunication:
		if err := uc.save(ctx, in.Contact.ID, entity.ResponseCommunication, in.Token.Value, entity.CommunicationExtra{
			Status:    in.Token.Value,
			Channel:   in.Channel,
			Timestamp: uc.now(),
		}); err != nil {
			return nil, err
		}
		msg = BuyingIntentMessage()

	case ActionRecordBuyYes, ActionRecordBuyNo:
		if err := uc.save(ctx, in.Contact.ID, entity.ResponseBuyingIntent, in.Token.Value, entity.BuyingDecisionExtra{
			Decision:  in.Token.Value,
			Timestamp: uc.now(),
		}); err != nil {
			return nil, err
		}
		msg = BuyingClosedMessage(decision.Action == ActionRecordBuyYes)

	case ActionResendViaEmail:
		sellers, err := uc.Sellers.ListForContact(ctx, in.Contact.ID)
		if err != nil {
			return nil, storageError("failed to load sellers", err)
		}
		if len(sellers) == 0 {
			return nil, &DomainError{Code: CodeNoTransition, Message: "no seller to present in day1 fallback"}
		}
		msg = Day1Message(in.Contact, sellers[0])

	default:
		return out, nil
	}

	out.Sent, err = uc.dispatch(ctx, in, decision.Channels, msg)
	return out, err
}

// ResendSellerSelection sends the seller prompt again without recording a
// reply.
func (uc *ConversationUseCase) ResendSellerSelection(ctx context.Context, c *entity.Contact, ch entity.Channel) ([]*entity.Message, error) {
	return uc.sendSellerSelection(ctx, c, entity.StageSellerSelection, ch)
}

func (uc *ConversationUseCase) sendSellerSelection(ctx context.Context, c *entity.Contact, stage entity.Stage, ch entity.Channel) ([]*entity.Message, error) {
	sellers, err := uc.Sellers.ListForContact(ctx, c.ID)
	if err != nil {
		return nil, storageError("failed to load sellers", err)
	}

	if len(sellers) == 0 {
		uc.logger.ErrorContext(ctx, "no sellers for contact", slog.Int64("contact_id", c.ID))
		m, err := uc.Dispatcher.Send(ctx, c, ch, NoSellersMessage())
		if err != nil {
			return nil, err
		}
		return []*entity.Message{m}, nil
	}

	m, err := uc.Dispatcher.Send(ctx, c, ch, SellerSelectionMessage(stage, sellers))
	if err != nil {
		return nil, err
	}

	offered := OfferedSellers(sellers)
	options := make([]entity.SellerOption, 0, len(offered))
	for _, s := range offered {
		options = append(options, entity.SellerOption{
			ID:       s.ID,
			Name:     s.Name,
			LastName: s.LastName,
			ButtonID: SellerButtonID(s),
		})
	}
	if err := uc.save(ctx, c.ID, entity.ResponseSellerOptions, fmt.Sprintf("Shown %d sellers", len(options)),
		entity.SellerOptionsExtra{Sellers: options, Timestamp: uc.now()}); err != nil {
		uc.logger.WarnContext(ctx, "seller options not recorded", slog.Int64("contact_id", c.ID))
	}

	return []*entity.Message{m}, nil
}

// matchSeller finds the offered seller whose button id equals buttonID.
func (uc *ConversationUseCase) matchSeller(ctx context.Context, contactID int64, buttonID string) (*entity.Seller, error) {
	sellers, err := uc.Sellers.ListForContact(ctx, contactID)
	if err != nil {
		return nil, storageError("failed to load sellers", err)
	}
	for _, s := range OfferedSellers(sellers) {
		if SellerButtonID(s) == buttonID {
			return &s, nil
		}
	}
	return nil, &DomainError{
		Code:    CodeInvalidButton,
		Message: fmt.Sprintf("button %q does not match an offered seller", buttonID),
	}
}

func (uc *ConversationUseCase) replyChannel(in RespondInput, d Decision) entity.Channel {
	if d.Channels == ChannelEmailOnly {
		return entity.ChannelEmail
	}
	if in.Channel == "" {
		if in.Contact.Capabilities().HasPhone {
			return entity.ChannelWhatsApp
		}
		return entity.ChannelEmail
	}
	return in.Channel
}

func (uc *ConversationUseCase) dispatch(ctx context.Context, in RespondInput, policy ChannelPolicy, msg entity.Outbound) ([]*entity.Message, error) {
	switch policy {
	case ChannelAll:
		return uc.Dispatcher.SendAll(ctx, in.Contact, msg)
	case ChannelPreferred:
		m, err := uc.Dispatcher.SendPreferred(ctx, in.Contact, msg)
		if err != nil {
			return nil, err
		}
		return []*entity.Message{m}, nil
	default:
		m, err := uc.Dispatcher.Send(ctx, in.Contact, uc.replyChannel(in, Decision{Channels: policy}), msg)
		if err != nil {
			return nil, err
		}
		return []*entity.Message{m}, nil
	}
}

func (uc *ConversationUseCase) saveAnswer(ctx context.Context, in RespondInput, stage string) error {
	return uc.save(ctx, in.Contact.ID, stage, in.Token.Value, entity.AnswerExtra{
		Channel:   in.Channel,
		Timestamp: uc.now(),
	})
}

func (uc *ConversationUseCase) save(ctx context.Context, contactID int64, stage, text string, extra entity.ResponseExtra) error {
	r := &entity.Response{
		ContactID: contactID,
		Stage:     stage,
		Text:      text,
		Extra:     extra,
	}
	if err := uc.Responses.Save(ctx, r); err != nil {
		return storageError("failed to record response", err)
	}
	return nil
}
