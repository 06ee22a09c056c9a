package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-followup/internal/entity"
)

var bothChannels = entity.Capabilities{HasPhone: true, HasEmail: true}

func TestParseToken(t *testing.T) {
	tests := []struct {
		raw  string
		kind TokenKind
		want string
	}{
		{"yes", TokenYes, "yes"},
		{"  YES ", TokenYes, "yes"},
		{"no", TokenNo, "no"},
		{"seller_not_replying", TokenReason, "seller_not_replying"},
		{"No_Time_To_Contact", TokenReason, "no_time_to_contact"},
		{"communication_ok", TokenCommunicationOK, "communication_ok"},
		{"no_reply", TokenNoReply, "no_reply"},
		{"yes_buy", TokenYesBuy, "yes_buy"},
		{"no_buy", TokenNoBuy, "no_buy"},
		{"undeliverable", TokenUndeliverable, "undeliverable"},
		{"Anna_Smith", TokenSellerButton, "Anna_Smith"},
		{"", TokenUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tok := ParseToken(tt.raw)
			assert.Equal(t, tt.kind, tok.Kind)
			assert.Equal(t, tt.want, tok.Value)
		})
	}
}

func TestDecide_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		stage   entity.Stage
		token   string
		next    entity.Stage
		action  Action
		persist bool
		policy  ChannelPolicy
	}{
		{"day1 yes", entity.StageDay1, "yes", entity.StageDays4SellerSelection, ActionSendSellerSelection, false, ChannelReply},
		{"days4 yes", entity.StageDays4, "yes", entity.StageSellerSelection, ActionSendSellerSelection, true, ChannelReply},
		{"days4 no", entity.StageDays4, "no", entity.StageNoContactReason, ActionSendReasonPrompt, true, ChannelReply},
		{"seller button", entity.StageSellerSelection, "Anna_Smith", entity.StageCommunicationCheck, ActionRecordSellerChoice, true, ChannelAll},
		{"days4 seller button", entity.StageDays4SellerSelection, "Anna_Smith", entity.StageCommunicationCheck, ActionRecordSellerChoice, true, ChannelAll},
		{"reason", entity.StageNoContactReason, "seller_not_replying", entity.StageFeedbackConfirmation, ActionRecordReason, true, ChannelReply},
		{"communication ok", entity.StageCommunicationCheck, "communication_ok", entity.StageBuyingIntent, ActionRecordCommunication, true, ChannelReply},
		{"no reply", entity.StageCommunicationCheck, "no_reply", entity.StageBuyingIntent, ActionRecordCommunication, true, ChannelReply},
		{"yes buy", entity.StageBuyingIntent, "yes_buy", entity.StageTerminal, ActionRecordBuyYes, true, ChannelReply},
		{"no buy", entity.StageBuyingIntent, "no_buy", entity.StageTerminal, ActionRecordBuyNo, true, ChannelReply},
		{"undeliverable day1", entity.StageDay1, "undeliverable", entity.StageDay1, ActionResendViaEmail, false, ChannelEmailOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decide(tt.stage, ParseToken(tt.token), bothChannels)
			require.NoError(t, err)
			assert.Equal(t, tt.stage, d.From)
			assert.Equal(t, tt.next, d.Next)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.persist, d.PersistResponse)
			assert.Equal(t, tt.policy, d.Channels)
		})
	}
}

func TestDecide_RejectsUnknownPairs(t *testing.T) {
	tests := []struct {
		stage entity.Stage
		token string
	}{
		{entity.StageDay1, "no"},
		{entity.StageDays4, "Anna_Smith"},
		{entity.StageTerminal, "yes"},
		{entity.StageUnknown, "yes"},
		{entity.StageFeedbackConfirmation, "seller_not_replying"},
		{entity.StageNoContactReason, "yes"},
		{entity.StageDays4, "undeliverable"},
	}

	for _, tt := range tests {
		t.Run(tt.stage.String()+"/"+tt.token, func(t *testing.T) {
			_, err := Decide(tt.stage, ParseToken(tt.token), bothChannels)
			require.Error(t, err)
			assert.Equal(t, CodeNoTransition, ErrorCode(err))
		})
	}
}

func TestDecide_UndeliverableNeedsEmail(t *testing.T) {
	_, err := Decide(entity.StageDay1, UndeliverableToken(), entity.Capabilities{HasPhone: true})
	require.Error(t, err)
	assert.Equal(t, CodeNoChannel, ErrorCode(err))
}

func TestDecide_ContactWithoutChannels(t *testing.T) {
	_, err := Decide(entity.StageDays4, ParseToken("yes"), entity.Capabilities{})
	require.Error(t, err)
	assert.Equal(t, CodeNoChannel, ErrorCode(err))
}

// Every transition starts and ends at a known stage, and every stage is
// either left by some transition or is a dead end by construction.
func TestTransitionTable_Exhaustive(t *testing.T) {
	known := map[entity.Stage]bool{}
	for _, s := range Stages() {
		known[s] = true
	}

	for k, d := range transitions {
		assert.True(t, known[k.from], "unknown source stage %s", k.from)
		assert.True(t, known[d.Next], "unknown target stage %s", d.Next)
		assert.NotEqual(t, TokenUnknown, k.token, "transition on unknown token from %s", k.from)
		assert.NotEqual(t, ActionNone, d.Action, "transition %s/%s has no action", k.from, k.token)
	}

	deadEnds := map[entity.Stage]bool{
		entity.StageNoSellersFound:       true,
		entity.StageFeedbackConfirmation: true,
		entity.StageTerminal:             true,
	}
	for _, s := range Stages() {
		if deadEnds[s] {
			assert.False(t, AcceptsReplies(s), "%s should not accept replies", s)
			continue
		}
		assert.True(t, AcceptsReplies(s), "%s has no outgoing transition", s)
	}

	for _, s := range Stages() {
		assert.Equal(t, s, entity.ParseStage(s.String()), "stage %s does not round-trip by name", s)
	}
}

func TestPromptStagesResolve(t *testing.T) {
	for _, name := range entity.PromptStageNames() {
		s := entity.ParseStage(name)
		assert.True(t, AcceptsReplies(s), "prompt %s resolves to %s which accepts no replies", name, s)
	}
}
