package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xavierca1/lead-followup/internal/entity"
)

const (
	uniqueViolation      = "23505"
	followUpAttemptIndex = "ux_messages_followup_attempt"
	messageSelectColumns = `id, contact_id, message_type, COALESCE(template_name, ''), COALESCE(message_text, ''),
		COALESCE(whatsapp_message_id, ''), COALESCE(sendpulse_message_id, ''), COALESCE(sendpulse_contact_id, ''),
		status, COALESCE(status_description, ''), COALESCE(stage_prefix, ''), COALESCE(attempt, 0), created_at`
	messageInsertStatement = `
		INSERT INTO messages (
			contact_id, message_type, template_name, message_text,
			whatsapp_message_id, sendpulse_message_id, sendpulse_contact_id,
			status, status_description, stage_prefix, attempt
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
)

type MessageRepository struct {
	DB *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

func (r *MessageRepository) Save(ctx context.Context, m *entity.Message) error {
	if err := r.insert(ctx, m); err != nil {
		return fmt.Errorf("error saving message: %w", err)
	}
	return nil
}

// Reserve inserts a pending attempt row. The partial unique index on
// (contact_id, stage_prefix, attempt) rejects a second row for the same
// attempt.
func (r *MessageRepository) Reserve(ctx context.Context, m *entity.Message) error {
	if m.StagePrefix == "" || m.Attempt == 0 {
		return errors.New("reserve needs a stage prefix and attempt")
	}
	if m.Channel == "" {
		m.Channel = entity.ChannelWhatsApp
	}

	err := r.insert(ctx, m)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == followUpAttemptIndex {
		return entity.ErrAttemptTaken
	}
	return fmt.Errorf("error reserving attempt: %w", err)
}

// Release removes a reservation that was never sent.
func (r *MessageRepository) Release(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM messages WHERE id = $1 AND status = $2`, id, entity.MessageStatusPending)
	if err != nil {
		return fmt.Errorf("error releasing message id %d: %w", id, err)
	}
	return nil
}

// Confirm fills a reserved row with the outcome of the send.
func (r *MessageRepository) Confirm(ctx context.Context, id int64, d entity.Delivery) error {
	query := `
		UPDATE messages SET
			message_type = $2,
			message_text = $3,
			whatsapp_message_id = $4,
			sendpulse_message_id = $5,
			sendpulse_contact_id = $6,
			status = $7
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id,
		d.Channel,
		nullString(d.Body),
		nullString(d.WhatsAppMessageID),
		nullString(d.ProviderMessageID),
		nullString(d.ProviderContactID),
		d.Status,
	)
	if err != nil {
		return fmt.Errorf("error confirming message id %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message id %d: %w", id, entity.ErrNoMessages)
	}
	return nil
}

func (r *MessageRepository) UpdateStatus(ctx context.Context, id int64, status entity.MessageStatus, description string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE messages SET status = $2, status_description = $3 WHERE id = $1`,
		id, status, nullString(description),
	)
	if err != nil {
		return fmt.Errorf("error updating status of message id %d: %w", id, err)
	}
	return nil
}

// ListByContact returns the contact's messages newest first.
func (r *MessageRepository) ListByContact(ctx context.Context, contactID int64) ([]entity.Message, error) {
	query := `SELECT ` + messageSelectColumns + `
		FROM messages
		WHERE contact_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.DB.QueryContext(ctx, query, contactID)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	defer rows.Close()

	var messages []entity.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) LatestByStages(ctx context.Context, contactID int64, stages []string) (*entity.Message, error) {
	query := `SELECT ` + messageSelectColumns + `
		FROM messages
		WHERE contact_id = $1 AND template_name = ANY($2)
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	return r.findOne(ctx, query, contactID, stages)
}

// LatestAttempt returns the newest message whose template name starts with
// prefix. Its Attempt is the number of such messages, so seller prompts sent
// under a days4 name count as well as scheduler sends.
func (r *MessageRepository) LatestAttempt(ctx context.Context, contactID int64, prefix string) (*entity.Message, error) {
	query := `SELECT ` + messageSelectColumns + `, COUNT(*) OVER ()
		FROM messages
		WHERE contact_id = $1 AND template_name LIKE $2::text || '%'
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var attempts int
	m, err := scanMessage(r.DB.QueryRowContext(ctx, query, contactID, prefix), &attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNoMessages
		}
		return nil, err
	}
	m.Attempt = attempts
	return m, nil
}

// FindFirstFollowUpDue lists contacts whose day1 went out on or before cutoff
// and who have no days4-named message of any kind.
func (r *MessageRepository) FindFirstFollowUpDue(ctx context.Context, cutoff time.Time) ([]entity.FollowUpCandidate, error) {
	query := `
		SELECT DISTINCT ON (c.id)
			c.id, c.name, c.last_name, COALESCE(c.phone, ''), COALESCE(c.email, ''), 0, m.created_at
		FROM messages m
		JOIN contacts c ON c.id = m.contact_id
		WHERE m.template_name = 'day1'
		AND m.created_at <= $1
		AND NOT EXISTS (
			SELECT 1 FROM messages m2
			WHERE m2.contact_id = m.contact_id
			AND m2.template_name LIKE $2::text || '%'
		)
		ORDER BY c.id, m.created_at DESC
	`
	return r.candidates(ctx, query, cutoff, entity.FollowUpPrefix)
}

// FindRetryDue lists contacts whose latest days4-named message went out on or
// before cutoff, got no answer, and has fewer than maxAttempts attempts. A
// contact that already picked a seller is never retried.
func (r *MessageRepository) FindRetryDue(ctx context.Context, cutoff time.Time, maxAttempts int) ([]entity.FollowUpCandidate, error) {
	query := `
		WITH last_followup AS (
			SELECT contact_id, MAX(created_at) AS last_sent_at, COUNT(*) AS attempts
			FROM messages
			WHERE template_name LIKE $2::text || '%'
			GROUP BY contact_id
		)
		SELECT c.id, c.name, c.last_name, COALESCE(c.phone, ''), COALESCE(c.email, ''), lf.attempts, lf.last_sent_at
		FROM last_followup lf
		JOIN contacts c ON c.id = lf.contact_id
		WHERE lf.last_sent_at <= $1
		AND lf.attempts < $3
		AND NOT EXISTS (
			SELECT 1 FROM click_tracking ct
			WHERE ct.contact_id = lf.contact_id
			AND ct.template_name LIKE $2::text || '%'
			AND ct.response IS NOT NULL
			AND ct.response <> ''
		)
		AND NOT EXISTS (
			SELECT 1 FROM message_responses mr
			WHERE mr.contact_id = lf.contact_id
			AND mr.template_name = ANY($4)
		)
		ORDER BY c.id
	`
	answered := []string{entity.ResponseDays4, entity.ResponseSellerSelected}
	return r.candidates(ctx, query, cutoff, entity.FollowUpPrefix, maxAttempts, answered)
}

func (r *MessageRepository) candidates(ctx context.Context, query string, args ...any) ([]entity.FollowUpCandidate, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error finding follow-up candidates: %w", err)
	}
	defer rows.Close()

	var out []entity.FollowUpCandidate
	for rows.Next() {
		var (
			cand   entity.FollowUpCandidate
			lastAt time.Time
		)
		c := &cand.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.LastName, &c.Phone, &c.Email, &cand.Attempts, &lastAt); err != nil {
			return nil, fmt.Errorf("error scanning candidate: %w", err)
		}
		cand.LastSentAt = &lastAt
		out = append(out, cand)
	}
	return out, rows.Err()
}

func (r *MessageRepository) insert(ctx context.Context, m *entity.Message) error {
	var attempt *int
	if m.StagePrefix != "" {
		attempt = nullInt(m.Attempt)
	}
	return r.DB.QueryRowContext(ctx, messageInsertStatement,
		m.ContactID,
		m.Channel,
		nullString(m.Stage),
		nullString(m.Body),
		nullString(m.WhatsAppMessageID),
		nullString(m.ProviderMessageID),
		nullString(m.ProviderContactID),
		m.Status,
		nullString(m.StatusDescription),
		nullString(m.StagePrefix),
		attempt,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *MessageRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Message, error) {
	m, err := scanMessage(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNoMessages
		}
		return nil, err
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanMessage reads messageSelectColumns followed by any extra columns.
func scanMessage(row rowScanner, extra ...any) (*entity.Message, error) {
	var m entity.Message
	dest := []any{
		&m.ID, &m.ContactID, &m.Channel, &m.Stage, &m.Body,
		&m.WhatsAppMessageID, &m.ProviderMessageID, &m.ProviderContactID,
		&m.Status, &m.StatusDescription, &m.StagePrefix, &m.Attempt, &m.CreatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning message: %w", err)
	}
	return &m, nil
}
