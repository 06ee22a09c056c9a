package entity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrContactNotFound = errors.New("contact not found")

type Contact struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

func (c *Contact) FullName() string {
	return strings.TrimSpace(c.Name + " " + c.LastName)
}

// Capabilities reports which outbound channels can reach the contact.
func (c *Contact) Capabilities() Capabilities {
	return Capabilities{
		HasPhone: strings.TrimSpace(c.Phone) != "",
		HasEmail: strings.TrimSpace(c.Email) != "",
	}
}

type Capabilities struct {
	HasPhone bool
	HasEmail bool
}

type Deal struct {
	ID        int64     `json:"id"`
	ContactID int64     `json:"contact_id"`
	Status    string    `json:"status"` // active, inactive
	CreatedAt time.Time `json:"created_at"`
}

type Seller struct {
	ID       int64  `json:"id"`
	DealID   int64  `json:"deal_id"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (s Seller) FullName() string {
	return strings.TrimSpace(s.Name + " " + s.LastName)
}

// NormalizePhone strips the leading plus and any spaces so numbers typed by
// hand match the ones the provider reports.
func NormalizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, "+", "")
	return strings.ReplaceAll(phone, " ", "")
}

type ContactRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*Contact, error)
	FindByPhone(ctx context.Context, phone string) (*Contact, error)
	FindByEmail(ctx context.Context, email string) (*Contact, error)
}

type SellerRepositoryInterface interface {
	// ListForContact returns the distinct sellers of every deal of the
	// contact, in the order they were stored.
	ListForContact(ctx context.Context, contactID int64) ([]Seller, error)
}
