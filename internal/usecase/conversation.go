package usecase

import (
	"fmt"
	"strings"

	"github.com/xavierca1/lead-followup/internal/entity"
)

type TokenKind int

const (
	TokenUnknown TokenKind = iota
	TokenYes
	TokenNo
	TokenUndeliverable
	TokenSellerButton
	TokenReason
	TokenCommunicationOK
	TokenNoReply
	TokenYesBuy
	TokenNoBuy
)

// Reply tokens carried by buttons and tracking links.
const (
	ReplyYes                = "yes"
	ReplyNo                 = "no"
	ReplySellerNotReplying  = "seller_not_replying"
	ReplyNoTimeToContact    = "no_time_to_contact"
	ReplyCommunicationOK    = "communication_ok"
	ReplyNoReply            = "no_reply"
	ReplyYesBuy             = "yes_buy"
	ReplyNoBuy              = "no_buy"
	replyUndeliverableToken = "undeliverable"
)

var tokenNames = map[TokenKind]string{
	TokenUnknown:         "unknown",
	TokenYes:             "yes",
	TokenNo:              "no",
	TokenUndeliverable:   "undeliverable",
	TokenSellerButton:    "seller_button",
	TokenReason:          "reason",
	TokenCommunicationOK: "communication_ok",
	TokenNoReply:         "no_reply",
	TokenYesBuy:          "yes_buy",
	TokenNoBuy:           "no_buy",
}

func (k TokenKind) String() string {
	return tokenNames[k]
}

type Token struct {
	Kind  TokenKind
	Value string
}

// UndeliverableToken is fed to the machine when the provider reports a
// message as undeliverable.
func UndeliverableToken() Token {
	return Token{Kind: TokenUndeliverable, Value: replyUndeliverableToken}
}

// ParseToken classifies a raw reply. Anything that is not a known reply is
// treated as a seller button id; the machine rejects it outside seller
// selection.
func ParseToken(raw string) Token {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "":
		return Token{Kind: TokenUnknown}
	case ReplyYes:
		return Token{Kind: TokenYes, Value: ReplyYes}
	case ReplyNo:
		return Token{Kind: TokenNo, Value: ReplyNo}
	case ReplySellerNotReplying, ReplyNoTimeToContact:
		return Token{Kind: TokenReason, Value: strings.ToLower(value)}
	case ReplyCommunicationOK:
		return Token{Kind: TokenCommunicationOK, Value: ReplyCommunicationOK}
	case ReplyNoReply:
		return Token{Kind: TokenNoReply, Value: ReplyNoReply}
	case ReplyYesBuy:
		return Token{Kind: TokenYesBuy, Value: ReplyYesBuy}
	case ReplyNoBuy:
		return Token{Kind: TokenNoBuy, Value: ReplyNoBuy}
	case replyUndeliverableToken:
		return UndeliverableToken()
	}
	return Token{Kind: TokenSellerButton, Value: value}
}

// Action is the side effect the executor performs for a transition.
type Action int

const (
	ActionNone Action = iota
	ActionSendSellerSelection
	ActionSendReasonPrompt
	ActionRecordSellerChoice
	ActionRecordReason
	ActionRecordCommunication
	ActionRecordBuyYes
	ActionRecordBuyNo
	ActionResendViaEmail
)

// ChannelPolicy says where the next message goes.
type ChannelPolicy int

const (
	// ChannelReply answers on the channel the event came from.
	ChannelReply ChannelPolicy = iota
	// ChannelPreferred uses WhatsApp when possible and falls back to email.
	ChannelPreferred
	// ChannelAll sends on every channel the contact has.
	ChannelAll
	ChannelEmailOnly
)

type Decision struct {
	From            entity.Stage
	Next            entity.Stage
	Action          Action
	PersistResponse bool
	Channels        ChannelPolicy
}

type transitionKey struct {
	from  entity.Stage
	token TokenKind
}

var transitions = map[transitionKey]Decision{
	{entity.StageDay1, TokenYes}: {
		Next: entity.StageDays4SellerSelection, Action: ActionSendSellerSelection, Channels: ChannelReply,
	},
	{entity.StageDay1, TokenUndeliverable}: {
		Next: entity.StageDay1, Action: ActionResendViaEmail, Channels: ChannelEmailOnly,
	},
	{entity.StageDays4, TokenYes}: {
		Next: entity.StageSellerSelection, Action: ActionSendSellerSelection, PersistResponse: true, Channels: ChannelReply,
	},
	{entity.StageDays4, TokenNo}: {
		Next: entity.StageNoContactReason, Action: ActionSendReasonPrompt, PersistResponse: true, Channels: ChannelReply,
	},
	{entity.StageSellerSelection, TokenSellerButton}: {
		Next: entity.StageCommunicationCheck, Action: ActionRecordSellerChoice, PersistResponse: true, Channels: ChannelAll,
	},
	{entity.StageDays4SellerSelection, TokenSellerButton}: {
		Next: entity.StageCommunicationCheck, Action: ActionRecordSellerChoice, PersistResponse: true, Channels: ChannelAll,
	},
	{entity.StageNoContactReason, TokenReason}: {
		Next: entity.StageFeedbackConfirmation, Action: ActionRecordReason, PersistResponse: true, Channels: ChannelReply,
	},
	{entity.StageCommunicationCheck, TokenCommunicationOK}: {
		Next: entity.StageBuyingIntent, Action: ActionRecordCommunication, PersistResponse: true, Channels: ChannelReply,
	},
	{entity.StageCommunicationCheck, TokenNoReply}: {
		Next: entity.StageBuyingIntent, Action: ActionRecordCommunication, PersistResponse: true, Channels: ChannelReply,
	},
	{entity.StageBuyingIntent, TokenYesBuy}: {
		Next: entity.StageTerminal, Action: ActionRecordBuyYes, PersistResponse: true, Channels: ChannelReply,
	},
	{entity.StageBuyingIntent, TokenNoBuy}: {
		Next: entity.StageTerminal, Action: ActionRecordBuyNo, PersistResponse: true, Channels: ChannelReply,
	},
}

// Decide maps the contact's current stage and the inbound token to the next
// step. It performs no I/O.
func Decide(stage entity.Stage, token Token, caps entity.Capabilities) (Decision, error) {
	d, ok := transitions[transitionKey{stage, token.Kind}]
	if !ok {
		return Decision{}, &DomainError{
			Code:    CodeNoTransition,
			Message: fmt.Sprintf("no transition from %s on %s", stage, token.Kind),
		}
	}
	d.From = stage

	switch d.Channels {
	case ChannelEmailOnly:
		if !caps.HasEmail {
			return Decision{}, &DomainError{Code: CodeNoChannel, Message: "contact has no email for fallback"}
		}
	default:
		if !caps.HasEmail && !caps.HasPhone {
			return Decision{}, &DomainError{Code: CodeNoChannel, Message: "contact has neither phone nor email"}
		}
	}

	return d, nil
}

// Stages lists every stage the machine knows, used to check the table covers
// each non-terminal stage.
func Stages() []entity.Stage {
	return []entity.Stage{
		entity.StageDay1,
		entity.StageDays4,
		entity.StageDays4SellerSelection,
		entity.StageSellerSelection,
		entity.StageNoSellersFound,
		entity.StageNoContactReason,
		entity.StageFeedbackConfirmation,
		entity.StageCommunicationCheck,
		entity.StageBuyingIntent,
		entity.StageTerminal,
	}
}

// AcceptsReplies reports whether any transition leaves the stage.
func AcceptsReplies(stage entity.Stage) bool {
	for k := range transitions {
		if k.from == stage {
			return true
		}
	}
	return false
}
