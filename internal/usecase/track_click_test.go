package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-followup/internal/entity"
)

type fakeClicks struct {
	saved []*entity.ClickEvent
}

func (f *fakeClicks) Save(_ context.Context, c *entity.ClickEvent) error {
	f.saved = append(f.saved, c)
	return nil
}

const (
	homeURL   = "https://bimedis.test"
	searchURL = "https://bimedis.test/search"
)

func newTrackClickFixture(sellers fakeSellers, contacts ...*entity.Contact) (*TrackClickUseCase, *fakeClicks, *conversationFixture) {
	cf := newConversationFixture(sellers)
	clicks := &fakeClicks{}
	uc := NewTrackClickUseCase(newFakeContacts(contacts...), clicks, cf.uc, homeURL, searchURL, discardLogger())
	return uc, clicks, cf
}

func TestTrackClick_YesOnDays4SendsSellerSelectionByEmail(t *testing.T) {
	uc, clicks, cf := newTrackClickFixture(fakeSellers{ivan.ID: fourSellers}, ivan)
	cf.email.On("Send", mock.Anything, ivan.Email, "Ivan Petrov", mock.MatchedBy(func(m entity.Outbound) bool {
		return m.Stage == entity.StageSellerSelection
	})).Return("<html/>", nil).Once()

	out := uc.Execute(context.Background(), TrackClickInput{
		Email:     ivan.Email,
		Response:  "yes",
		Template:  "days4",
		UserAgent: "Mozilla/5.0",
	})

	assert.Equal(t, searchURL, out.RedirectURL)
	require.Len(t, clicks.saved, 1)
	assert.Equal(t, ivan.ID, *clicks.saved[0].ContactID)
	assert.Equal(t, "unknown", clicks.saved[0].Referrer)
	cf.email.AssertExpectations(t)
	cf.whatsApp.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackClick_UnknownEmailRedirectsHome(t *testing.T) {
	uc, clicks, _ := newTrackClickFixture(fakeSellers{})

	out := uc.Execute(context.Background(), TrackClickInput{Email: "nobody@example.com", Response: "yes"})

	assert.Equal(t, homeURL, out.RedirectURL)
	require.Len(t, clicks.saved, 1)
	assert.Nil(t, clicks.saved[0].ContactID)
	assert.Equal(t, "days4", clicks.saved[0].Stage)
}

func TestTrackClick_MissingParamsDefaulted(t *testing.T) {
	uc, clicks, _ := newTrackClickFixture(fakeSellers{})

	out := uc.Execute(context.Background(), TrackClickInput{})

	assert.Equal(t, homeURL, out.RedirectURL)
	require.Len(t, clicks.saved, 1)
	assert.Equal(t, "unknown", clicks.saved[0].Email)
	assert.Equal(t, "unknown", clicks.saved[0].UserAgent)
}

func TestTrackClick_InvalidReplyStillRedirects(t *testing.T) {
	uc, _, cf := newTrackClickFixture(fakeSellers{}, ivan)

	out := uc.Execute(context.Background(), TrackClickInput{Email: ivan.Email, Response: "maybe", Template: "days4"})

	assert.Equal(t, searchURL, out.RedirectURL)
	cf.email.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
