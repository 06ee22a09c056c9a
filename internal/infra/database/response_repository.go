package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/lead-followup/internal/entity"
)

type ResponseRepository struct {
	DB *sql.DB
}

func NewResponseRepository(db *sql.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

func (r *ResponseRepository) Save(ctx context.Context, resp *entity.Response) error {
	var extra []byte
	if resp.Extra != nil {
		raw, err := entity.MarshalExtra(resp.Extra)
		if err != nil {
			return fmt.Errorf("error encoding response extra: %w", err)
		}
		extra = raw
	}

	query := `
		INSERT INTO message_responses (contact_id, template_name, response_text, additional_data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, query, resp.ContactID, resp.Stage, resp.Text, jsonb(extra)).
		Scan(&resp.ID, &resp.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving response: %w", err)
	}
	return nil
}

// ListByContact returns the contact's responses newest first.
func (r *ResponseRepository) ListByContact(ctx context.Context, contactID int64) ([]entity.Response, error) {
	query := `
		SELECT id, contact_id, template_name, response_text, additional_data, created_at
		FROM message_responses
		WHERE contact_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, contactID)
	if err != nil {
		return nil, fmt.Errorf("error listing responses: %w", err)
	}
	defer rows.Close()

	var out []entity.Response
	for rows.Next() {
		var (
			resp entity.Response
			raw  []byte
		)
		if err := rows.Scan(&resp.ID, &resp.ContactID, &resp.Stage, &resp.Text, &raw, &resp.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning response: %w", err)
		}
		if len(raw) > 0 {
			extra, err := entity.UnmarshalExtra(raw)
			if err != nil {
				return nil, fmt.Errorf("response id %d: %w", resp.ID, err)
			}
			resp.Extra = extra
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

// jsonb keeps a nil payload as SQL NULL and sends the rest as text so the
// server casts it to jsonb.
func jsonb(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}
