package entity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAttemptTaken is returned when a follow-up attempt row already exists
	// for the same contact, prefix and attempt number.
	ErrAttemptTaken = errors.New("follow-up attempt already recorded")
	ErrNoMessages   = errors.New("no messages found")
)

// MessageStatus mirrors the provider's numeric delivery status. Email sends
// only ever use Pending, Sent or Failed.
type MessageStatus int

const (
	MessageStatusPending       MessageStatus = 0
	MessageStatusSent          MessageStatus = 1
	MessageStatusDelivered     MessageStatus = 2
	MessageStatusRead          MessageStatus = 3
	MessageStatusFailed        MessageStatus = 5
	MessageStatusUndeliverable MessageStatus = 6
)

type Message struct {
	ID                int64         `json:"id"`
	ContactID         int64         `json:"contact_id"`
	Channel           Channel       `json:"message_type"`
	Stage             string        `json:"template_name"`
	Body              string        `json:"message_text,omitempty"`
	WhatsAppMessageID string        `json:"whatsapp_message_id,omitempty"`
	ProviderMessageID string        `json:"sendpulse_message_id,omitempty"`
	ProviderContactID string        `json:"sendpulse_contact_id,omitempty"`
	Status            MessageStatus `json:"status"`
	StatusDescription string        `json:"status_description,omitempty"`
	StagePrefix       string        `json:"-"`
	Attempt           int           `json:"attempt,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Delivery is what an outbound channel reports back after a send.
type Delivery struct {
	Channel           Channel
	Body              string
	WhatsAppMessageID string
	ProviderMessageID string
	ProviderContactID string
	Status            MessageStatus
}

// ProviderMessage is the provider's view of the latest message in a chat.
type ProviderMessage struct {
	ID        string        `json:"id"`
	Status    MessageStatus `json:"status"`
	Direction int           `json:"direction,omitempty"`
	CreatedAt string        `json:"created_at,omitempty"`
}

type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Outbound is a channel-neutral message. WhatsApp sends the provider template
// when Template is set, otherwise Text with optional reply Buttons. Email
// always renders Text and turns Buttons into tracking links.
type Outbound struct {
	Stage    Stage
	Name     string // template_name recorded for the send, defaults to Stage
	Template string
	Params   []string
	Text     string
	Buttons  []Button
	Subject  string
}

func (o Outbound) RecordName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Stage.String()
}

// FollowUpCandidate is a contact the scheduler may send a days4 attempt to.
type FollowUpCandidate struct {
	Contact    Contact
	Attempts   int
	LastSentAt *time.Time
}

type MessageRepositoryInterface interface {
	Save(ctx context.Context, m *Message) error
	// Reserve inserts an attempt row guarded by the unique attempt index and
	// returns ErrAttemptTaken when another run got there first.
	Reserve(ctx context.Context, m *Message) error
	Release(ctx context.Context, id int64) error
	Confirm(ctx context.Context, id int64, d Delivery) error
	UpdateStatus(ctx context.Context, id int64, status MessageStatus, description string) error
	ListByContact(ctx context.Context, contactID int64) ([]Message, error)
	LatestByStages(ctx context.Context, contactID int64, stages []string) (*Message, error)
	// LatestAttempt returns the newest message whose stage name starts with
	// prefix, with Attempt set to how many such messages exist.
	LatestAttempt(ctx context.Context, contactID int64, prefix string) (*Message, error)
	FindFirstFollowUpDue(ctx context.Context, cutoff time.Time) ([]FollowUpCandidate, error)
	FindRetryDue(ctx context.Context, cutoff time.Time, maxAttempts int) ([]FollowUpCandidate, error)
}
