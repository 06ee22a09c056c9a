package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/lead-followup/internal/entity"
)

type ClickRepository struct {
	DB *sql.DB
}

func NewClickRepository(db *sql.DB) *ClickRepository {
	return &ClickRepository{DB: db}
}

func (r *ClickRepository) Save(ctx context.Context, c *entity.ClickEvent) error {
	query := `
		INSERT INTO click_tracking (contact_id, email, template_name, response, user_agent, referrer)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, query,
		c.ContactID,
		c.Email,
		c.Stage,
		nullString(c.Response),
		c.UserAgent,
		c.Referrer,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving click: %w", err)
	}
	return nil
}
