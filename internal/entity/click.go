package entity

import (
	"context"
	"time"
)

type ClickEvent struct {
	ID        int64     `json:"id"`
	ContactID *int64    `json:"contact_id,omitempty"`
	Email     string    `json:"email"`
	Stage     string    `json:"template_name"`
	Response  string    `json:"response,omitempty"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer"`
	CreatedAt time.Time `json:"created_at"`
}

type ClickSummary struct {
	TotalClicks       int `json:"total_clicks" db:"total_clicks"`
	UniqueContacts    int `json:"unique_contacts" db:"unique_contacts"`
	UniqueEmails      int `json:"unique_emails" db:"unique_emails"`
	TotalResponses    int `json:"total_responses" db:"total_responses"`
	PositiveResponses int `json:"positive_responses" db:"positive_responses"`
	NegativeResponses int `json:"negative_responses" db:"negative_responses"`
}

type DailyClickStats struct {
	Date         string `json:"date" db:"date"`
	TotalClicks  int    `json:"total_clicks" db:"total_clicks"`
	YesResponses int    `json:"yes_responses" db:"yes_responses"`
	NoResponses  int    `json:"no_responses" db:"no_responses"`
}

type ClickStats struct {
	Summary    ClickSummary      `json:"summary"`
	DailyStats []DailyClickStats `json:"daily_stats"`
}

type SellerResponseStats struct {
	SellerID        string    `json:"seller_id" db:"seller_id"`
	SellerName      string    `json:"seller_name" db:"seller_name"`
	TotalSelections int       `json:"total_selections" db:"total_selections"`
	LastSelectedAt  time.Time `json:"last_selected_at" db:"last_selected_at"`
}

type ClickRepositoryInterface interface {
	Save(ctx context.Context, c *ClickEvent) error
}

type ReportRepositoryInterface interface {
	ClickStats(ctx context.Context, template string, days uint) (*ClickStats, error)
	SellerResponseStats(ctx context.Context) ([]SellerResponseStats, error)
}
