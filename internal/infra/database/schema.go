package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		phone      TEXT,
		email      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(lower(email))`,

	`CREATE TABLE IF NOT EXISTS deals (
		id         BIGSERIAL PRIMARY KEY,
		contact_id BIGINT NOT NULL REFERENCES contacts(id),
		status     TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS deal_sellers (
		id         BIGSERIAL PRIMARY KEY,
		deal_id    BIGINT NOT NULL REFERENCES deals(id),
		name       TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		email      TEXT,
		phone      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id                   BIGSERIAL PRIMARY KEY,
		contact_id           BIGINT NOT NULL REFERENCES contacts(id),
		message_type         VARCHAR(20) NOT NULL,
		template_name        VARCHAR(50),
		message_text         TEXT,
		whatsapp_message_id  TEXT,
		sendpulse_message_id TEXT,
		sendpulse_contact_id TEXT,
		status               INTEGER NOT NULL DEFAULT 0,
		status_description   TEXT,
		stage_prefix         VARCHAR(50),
		attempt              INTEGER,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_contact_created ON messages(contact_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_messages_followup_attempt
		ON messages(contact_id, stage_prefix, attempt) WHERE attempt IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS message_responses (
		id              BIGSERIAL PRIMARY KEY,
		contact_id      BIGINT NOT NULL REFERENCES contacts(id),
		template_name   TEXT NOT NULL,
		response_text   TEXT NOT NULL,
		additional_data JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_message_responses_contact ON message_responses(contact_id, template_name)`,

	`CREATE TABLE IF NOT EXISTS click_tracking (
		id            BIGSERIAL PRIMARY KEY,
		contact_id    BIGINT REFERENCES contacts(id),
		email         TEXT NOT NULL,
		template_name TEXT NOT NULL,
		response      TEXT,
		user_agent    TEXT,
		referrer      TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_click_tracking_contact_id ON click_tracking(contact_id)`,
	`CREATE INDEX IF NOT EXISTS idx_click_tracking_email ON click_tracking(email)`,
}

// Migrate creates the tables and indexes. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return tx.Commit()
}
