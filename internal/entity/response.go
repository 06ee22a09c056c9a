package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Template names under which responses are recorded.
const (
	ResponseDays4          = "days4"
	ResponseSellerSelected = "seller_selected"
	ResponseSellerOptions  = "seller_selection_options"
	ResponseNoContact      = "days4_no_contact_reason"
	ResponseCommunication  = "seller_communication"
	ResponseBuyingIntent   = "buying_intent"
)

type Response struct {
	ID        int64         `json:"id"`
	ContactID int64         `json:"contact_id"`
	Stage     string        `json:"template_name"`
	Text      string        `json:"response_text"`
	Extra     ResponseExtra `json:"additional_data,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ResponseExtra is the typed payload stored next to a response. Each
// implementation is one variant of the union, identified by Kind.
type ResponseExtra interface {
	Kind() string
}

type AnswerExtra struct {
	Channel   Channel   `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

type SellerChoiceExtra struct {
	SellerID  int64     `json:"seller_id"`
	Name      string    `json:"name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"seller_email"`
	Phone     string    `json:"seller_phone"`
	Timestamp time.Time `json:"timestamp"`
}

type SellerOption struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	ButtonID string `json:"button_id"`
}

type SellerOptionsExtra struct {
	Sellers   []SellerOption `json:"sellers"`
	Timestamp time.Time      `json:"timestamp"`
}

type ReasonExtra struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type CommunicationExtra struct {
	Status    string    `json:"status"`
	Channel   Channel   `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

type BuyingDecisionExtra struct {
	Decision  string    `json:"decision"`
	Timestamp time.Time `json:"timestamp"`
}

func (AnswerExtra) Kind() string         { return "answer" }
func (SellerChoiceExtra) Kind() string   { return "seller_choice" }
func (SellerOptionsExtra) Kind() string  { return "seller_options" }
func (ReasonExtra) Kind() string         { return "no_contact_reason" }
func (CommunicationExtra) Kind() string  { return "communication" }
func (BuyingDecisionExtra) Kind() string { return "buying_decision" }

type extraEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalExtra encodes an extra with its kind tag. A nil extra encodes to nil.
func MarshalExtra(extra ResponseExtra) ([]byte, error) {
	if extra == nil {
		return nil, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	return json.Marshal(extraEnvelope{Kind: extra.Kind(), Data: data})
}

func UnmarshalExtra(raw []byte) (ResponseExtra, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env extraEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	switch env.Kind {
	case AnswerExtra{}.Kind():
		var v AnswerExtra
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case SellerChoiceExtra{}.Kind():
		var v SellerChoiceExtra
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case SellerOptionsExtra{}.Kind():
		var v SellerOptionsExtra
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case ReasonExtra{}.Kind():
		var v ReasonExtra
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case CommunicationExtra{}.Kind():
		var v CommunicationExtra
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case BuyingDecisionExtra{}.Kind():
		var v BuyingDecisionExtra
		err := json.Unmarshal(env.Data, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown response extra kind %q", env.Kind)
	}
}

type ResponseRepositoryInterface interface {
	Save(ctx context.Context, r *Response) error
}
