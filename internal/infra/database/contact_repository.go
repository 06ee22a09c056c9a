package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xavierca1/lead-followup/internal/entity"
)

type ContactRepository struct {
	DB *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{DB: db}
}

const contactColumns = `id, name, last_name, COALESCE(phone, ''), COALESCE(email, '')`

func (r *ContactRepository) FindByID(ctx context.Context, id int64) (*entity.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByPhone matches the number with or without its leading plus.
func (r *ContactRepository) FindByPhone(ctx context.Context, phone string) (*entity.Contact, error) {
	normalized := entity.NormalizePhone(phone)
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE phone = $1 OR phone = $2 OR REPLACE(REPLACE(phone, '+', ''), ' ', '') = $1
		ORDER BY id
		LIMIT 1
	`
	return r.findOne(ctx, query, normalized, "+"+normalized)
}

func (r *ContactRepository) FindByEmail(ctx context.Context, email string) (*entity.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE lower(email) = lower($1)
		ORDER BY id
		LIMIT 1
	`
	return r.findOne(ctx, query, strings.TrimSpace(email))
}

func (r *ContactRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Contact, error) {
	var c entity.Contact
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Name, &c.LastName, &c.Phone, &c.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrContactNotFound
		}
		return nil, fmt.Errorf("error finding contact: %w", err)
	}
	return &c, nil
}
