package entity

import (
	"fmt"
	"strings"
)

// Stage is a point in the scripted outreach conversation.
type Stage int

const (
	StageUnknown Stage = iota
	StageDay1
	StageDays4
	StageDays4SellerSelection
	StageSellerSelection
	StageNoSellersFound
	StageNoContactReason
	StageFeedbackConfirmation
	StageCommunicationCheck
	StageBuyingIntent
	StageTerminal
)

// FollowUpPrefix groups the days4 send and its retries.
const FollowUpPrefix = "days4"

var stageNames = map[Stage]string{
	StageUnknown:              "unknown",
	StageDay1:                 "day1",
	StageDays4:                "days4",
	StageDays4SellerSelection: "days4_seller_selection",
	StageSellerSelection:      "seller_selection",
	StageNoSellersFound:       "no_sellers_found",
	StageNoContactReason:      "no_contact_reason",
	StageFeedbackConfirmation: "feedback_confirmation",
	StageCommunicationCheck:   "communication_check",
	StageBuyingIntent:         "buying_intent",
	StageTerminal:             "terminal",
}

// aliases maps template names used by tracking links and older rows.
var stageAliases = map[string]Stage{
	"days4_seller":                StageDays4SellerSelection,
	"days4_reason":                StageNoContactReason,
	"days4_no_reason":             StageNoContactReason,
	"days4_no_reason_request":     StageNoContactReason,
	"days4_feedback_confirmation": StageFeedbackConfirmation,
	"seller_communication":        StageCommunicationCheck,
}

var trackingTemplates = map[Stage]string{
	StageDay1:                 "day1",
	StageDays4:                "days4",
	StageDays4SellerSelection: "days4_seller",
	StageSellerSelection:      "days4_seller",
	StageNoContactReason:      "days4_reason",
	StageCommunicationCheck:   "communication_check",
	StageBuyingIntent:         "buying_intent",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// TrackingTemplate is the template value carried by email tracking links for
// prompts sent at this stage. Stages that never prompt return "".
func (s Stage) TrackingTemplate() string {
	return trackingTemplates[s]
}

// ParseStage resolves a stored template name or a tracking-link template to a
// Stage. Retry names such as days4_retry_2 resolve to StageDays4.
func ParseStage(name string) Stage {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StageUnknown
	}
	if strings.HasPrefix(name, FollowUpPrefix+"_retry_") {
		return StageDays4
	}
	if s, ok := stageAliases[name]; ok {
		return s
	}
	for s, n := range stageNames {
		if n == name {
			return s
		}
	}
	return StageUnknown
}

// PromptStageNames lists the message template names after which the contact
// is expected to answer.
func PromptStageNames() []string {
	return []string{
		StageDay1.String(),
		StageDays4.String(),
		FollowUpPrefix + "_retry_2",
		FollowUpPrefix + "_retry_3",
		StageDays4SellerSelection.String(),
		StageSellerSelection.String(),
		StageNoContactReason.String(),
		StageCommunicationCheck.String(),
		StageBuyingIntent.String(),
	}
}

// FollowUpStageName is the template name of the n-th days4 attempt.
func FollowUpStageName(attempt int) string {
	if attempt <= 1 {
		return FollowUpPrefix
	}
	return fmt.Sprintf("%s_retry_%d", FollowUpPrefix, attempt)
}

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)
