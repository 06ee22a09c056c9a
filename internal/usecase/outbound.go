package usecase

import (
	"fmt"
	"strings"

	"github.com/xavierca1/lead-followup/internal/entity"
)

const (
	// MaxSellerButtons is the WhatsApp limit on reply buttons per message.
	MaxSellerButtons = 3

	maxButtonTitle    = 20
	truncatedTitleLen = 17
)

const (
	SubjectFollowUp       = "Follow-up on your Bimedis inquiry"
	SubjectSelectSeller   = "Select seller - Bimedis"
	SubjectReason         = "Additional feedback required - Bimedis"
	SubjectFeedbackThanks = "Thank you for your feedback - Bimedis"
	SubjectCommunication  = "How is it going with the seller? - Bimedis"
	SubjectBuyingIntent   = "One more question - Bimedis"
	SubjectSupport        = "Bimedis support"
)

const (
	ContactNotFoundText = "We're sorry, but we couldn't find your contact information. " +
		"Our support team will contact you shortly."
	NoSellersText = "We apologize, but we couldn't find any sellers associated with your inquiry. " +
		"Our support team will contact you shortly."
	SellerSelectionText    = "What seller are you currently in contact with?"
	NoContactReasonText    = "Why didn't you manage to get in touch with the seller?"
	FeedbackThanksText     = "Thank you for your feedback. Our support team will look into this."
	CommunicationCheckText = "How is your communication with the seller going?"
	BuyingIntentText       = "Thank you for your feedback! Are you planning to buy the product?"
	BuyThanksText          = "Thank you! We're glad we could help. Good luck with your purchase."
	NoBuyFollowUpText      = "Thank you for letting us know. Could you tell us what made you change your mind? " +
		"Just reply to this message."
)

// FormatSellerName builds a button label, truncating names longer than the
// WhatsApp title limit.
func FormatSellerName(name, lastName string) string {
	full := []rune(strings.TrimSpace(name + " " + lastName))
	if len(full) > maxButtonTitle {
		return string(full[:truncatedTitleLen]) + "..."
	}
	return string(full)
}

func SellerButtonID(s entity.Seller) string {
	return strings.ReplaceAll(s.Name+"_"+s.LastName, " ", "_")
}

// OfferedSellers is the slice of sellers that fit in one selection message.
func OfferedSellers(sellers []entity.Seller) []entity.Seller {
	if len(sellers) > MaxSellerButtons {
		return sellers[:MaxSellerButtons]
	}
	return sellers
}

func SellerSelectionMessage(stage entity.Stage, sellers []entity.Seller) entity.Outbound {
	offered := OfferedSellers(sellers)
	buttons := make([]entity.Button, 0, len(offered))
	for _, s := range offered {
		buttons = append(buttons, entity.Button{
			ID:    SellerButtonID(s),
			Title: FormatSellerName(s.Name, s.LastName),
		})
	}
	return entity.Outbound{
		Stage:   stage,
		Text:    SellerSelectionText,
		Buttons: buttons,
		Subject: SubjectSelectSeller,
	}
}

func NoSellersMessage() entity.Outbound {
	return entity.Outbound{
		Stage:   entity.StageNoSellersFound,
		Text:    NoSellersText,
		Subject: SubjectSupport,
	}
}

func NoContactReasonMessage() entity.Outbound {
	return entity.Outbound{
		Stage: entity.StageNoContactReason,
		Text:  NoContactReasonText,
		Buttons: []entity.Button{
			{ID: ReplySellerNotReplying, Title: "Seller not replying"},
			{ID: ReplyNoTimeToContact, Title: "No time to contact"},
		},
		Subject: SubjectReason,
	}
}

func FeedbackThanksMessage() entity.Outbound {
	return entity.Outbound{
		Stage:   entity.StageFeedbackConfirmation,
		Text:    FeedbackThanksText,
		Subject: SubjectFeedbackThanks,
	}
}

func CommunicationCheckMessage(s entity.Seller) entity.Outbound {
	confirmation := fmt.Sprintf(
		"Thank you for confirming! We've recorded that you're in contact with %s.\n\n"+
			"If you need any additional assistance or have questions, feel free to contact our support team.",
		s.FullName(),
	)
	return entity.Outbound{
		Stage: entity.StageCommunicationCheck,
		Text:  confirmation + "\n\n" + CommunicationCheckText,
		Buttons: []entity.Button{
			{ID: ReplyCommunicationOK, Title: "Everything is fine"},
			{ID: ReplyNoReply, Title: "No reply yet"},
		},
		Subject: SubjectCommunication,
	}
}

func BuyingIntentMessage() entity.Outbound {
	return entity.Outbound{
		Stage: entity.StageBuyingIntent,
		Text:  BuyingIntentText,
		Buttons: []entity.Button{
			{ID: ReplyYesBuy, Title: "Yes, I will buy"},
			{ID: ReplyNoBuy, Title: "No, not buying"},
		},
		Subject: SubjectBuyingIntent,
	}
}

func BuyingClosedMessage(bought bool) entity.Outbound {
	text := NoBuyFollowUpText
	if bought {
		text = BuyThanksText
	}
	return entity.Outbound{
		Stage:   entity.StageTerminal,
		Text:    text,
		Subject: SubjectFeedbackThanks,
	}
}

// SellerInfo formats a seller's contact card the way the day1 template
// expects it.
func SellerInfo(s entity.Seller) string {
	return fmt.Sprintf("👤: %s,\n📞: %s,\n✉️: %s", s.FullName(), s.Phone, s.Email)
}

func Day1Message(c *entity.Contact, s entity.Seller) entity.Outbound {
	return entity.Outbound{
		Stage:    entity.StageDay1,
		Template: entity.StageDay1.String(),
		Params:   []string{c.FullName(), SellerInfo(s)},
		Text: "It is the customer assistance department of Bimedis. " +
			"Lately you were interested in buying multiple products.\n\n" +
			"Here is the seller's contact information:\n\n" + SellerInfo(s) + "\n\n" +
			"Please let me know if you were able to contact the seller:",
		Buttons: yesNoButtons(),
		Subject: SubjectFollowUp,
	}
}

// FollowUpMessage is the days4 prompt. Retries get a reminder wording on the
// email channel; WhatsApp reuses the approved template.
func FollowUpMessage(attempt int) entity.Outbound {
	text := "We wanted to follow up on your recent inquiry. " +
		"Were you able to get in touch with the seller?"
	if attempt > 1 {
		text = "We noticed you haven't responded to our previous message. " +
			"Were you able to get in touch with the seller?"
	}
	return entity.Outbound{
		Stage:    entity.StageDays4,
		Name:     entity.FollowUpStageName(attempt),
		Template: entity.StageDays4.String(),
		Text:     text,
		Buttons:  yesNoButtons(),
		Subject:  SubjectFollowUp,
	}
}

// SupportMessage is a free-text notice that is not part of the script.
func SupportMessage(text string) entity.Outbound {
	return entity.Outbound{Name: "error_message", Text: text, Subject: SubjectSupport}
}

func yesNoButtons() []entity.Button {
	return []entity.Button{
		{ID: ReplyYes, Title: "Yes"},
		{ID: ReplyNo, Title: "No"},
	}
}
