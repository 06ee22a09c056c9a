package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/http/middleware"
)

const (
	FollowUpInterval    = 5 * 24 * time.Hour
	MaxFollowUpAttempts = 3

	dateLayout = "2006-01-02"
)

const (
	ResultWhatsAppNew   = "whatsapp_new"
	ResultEmailNew      = "email_new"
	ResultWhatsAppRetry = "whatsapp_retry"
	ResultEmailRetry    = "email_retry"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

type FollowUpResult struct {
	ContactID int64  `json:"contact_id"`
	Type      string `json:"type"`
	Attempt   int    `json:"attempt"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type FollowUpOutput struct {
	Cutoff  string           `json:"cutoff"`
	Results []FollowUpResult `json:"results"`
}

// Counts tallies results by status.
func (o FollowUpOutput) Counts() map[string]int {
	counts := map[string]int{ResultSuccess: 0, ResultError: 0, ResultSkipped: 0}
	for _, r := range o.Results {
		counts[r.Status]++
	}
	return counts
}

// FollowUpUseCase sends the days4 message and its retries to contacts that
// went quiet after day1.
type FollowUpUseCase struct {
	Messages   entity.MessageRepositoryInterface
	Dispatcher *Dispatcher
	Locker     ContactLocker
	logger     *slog.Logger
	now        func() time.Time
}

func NewFollowUpUseCase(
	messages entity.MessageRepositoryInterface,
	dispatcher *Dispatcher,
	locker ContactLocker,
	logger *slog.Logger,
) *FollowUpUseCase {
	return &FollowUpUseCase{
		Messages:   messages,
		Dispatcher: dispatcher,
		Locker:     locker,
		logger:     logger.With(slog.String("component", "follow_up")),
		now:        time.Now,
	}
}

// Cutoff is the calendar date before which the last message must have been
// sent for a contact to be due.
func (uc *FollowUpUseCase) Cutoff() time.Time {
	now := uc.now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(-FollowUpInterval)
}

func (uc *FollowUpUseCase) Execute(ctx context.Context) (*FollowUpOutput, error) {
	cutoff := uc.Cutoff()
	out := &FollowUpOutput{Cutoff: cutoff.Format(dateLayout), Results: []FollowUpResult{}}

	first, err := uc.Messages.FindFirstFollowUpDue(ctx, cutoff)
	if err != nil {
		return nil, storageError("failed to load first follow-up candidates", err)
	}
	retries, err := uc.Messages.FindRetryDue(ctx, cutoff, MaxFollowUpAttempts)
	if err != nil {
		return nil, storageError("failed to load retry candidates", err)
	}

	uc.logger.InfoContext(ctx, "follow-up run started",
		slog.String("cutoff", out.Cutoff),
		slog.Int("first", len(first)),
		slog.Int("retries", len(retries)),
	)

	for _, c := range first {
		out.Results = append(out.Results, uc.process(ctx, c, 1, cutoff))
	}
	for _, c := range retries {
		if c.Attempts >= MaxFollowUpAttempts {
			continue
		}
		out.Results = append(out.Results, uc.process(ctx, c, c.Attempts+1, cutoff))
	}

	counts := out.Counts()
	uc.logger.InfoContext(ctx, "follow-up run finished",
		slog.Int("success", counts[ResultSuccess]),
		slog.Int("error", counts[ResultError]),
		slog.Int("skipped", counts[ResultSkipped]),
	)
	return out, nil
}

func (uc *FollowUpUseCase) process(ctx context.Context, cand entity.FollowUpCandidate, attempt int, cutoff time.Time) (res FollowUpResult) {
	c := cand.Contact
	res = FollowUpResult{
		ContactID: c.ID,
		Type:      resultType(c.Capabilities(), attempt),
		Attempt:   attempt,
	}
	defer func() { middleware.RecordFollowUpResult(res.Type, res.Status) }()

	log := uc.logger.With(slog.Int64("contact_id", c.ID), slog.Int("attempt", attempt))

	release, ok, err := uc.Locker.Acquire(ctx, "followup:contact:"+strconv.FormatInt(c.ID, 10))
	if err != nil {
		log.ErrorContext(ctx, "lock failed", slog.String("error", err.Error()))
		return res.fail(err)
	}
	if !ok {
		log.InfoContext(ctx, "contact locked by another run")
		return res.skip("locked by another run")
	}
	defer release()

	// re-read after the lock: another run may have sent in the meantime
	latest, err := uc.Messages.LatestAttempt(ctx, c.ID, entity.FollowUpPrefix)
	switch {
	case errors.Is(err, entity.ErrNoMessages):
	case err != nil:
		return res.fail(storageError("failed to load latest attempt", err))
	default:
		if latest.Attempt >= attempt {
			return res.skip(fmt.Sprintf("attempt %d already sent", latest.Attempt))
		}
		if latest.CreatedAt.After(cutoff) {
			return res.skip("follow-up sent on " + latest.CreatedAt.UTC().Format(dateLayout))
		}
	}

	msg := FollowUpMessage(attempt)
	row := &entity.Message{
		ContactID:   c.ID,
		Stage:       msg.RecordName(),
		StagePrefix: entity.FollowUpPrefix,
		Attempt:     attempt,
		Status:      entity.MessageStatusPending,
	}
	var delivery entity.Delivery

	tx := NewTransaction(uc.logger)
	tx.AddStep("reserve_attempt",
		func(ctx context.Context) error { return uc.Messages.Reserve(ctx, row) },
		func(ctx context.Context) error { return uc.Messages.Release(ctx, row.ID) },
	)
	tx.AddStep("send",
		func(ctx context.Context) error {
			delivery, err = uc.Dispatcher.DeliverPreferred(ctx, &c, msg)
			return err
		},
		nil,
	)

	if err := tx.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrAttemptTaken) {
			return res.skip("attempt already reserved")
		}
		log.ErrorContext(ctx, "follow-up failed", slog.String("error", err.Error()))
		return res.fail(err)
	}

	// the send went out; a failed confirm leaves the reserved row pending,
	// which still blocks a second send of this attempt
	if delivery.Body == "" {
		delivery.Body = msg.Text
	}
	if err := uc.Messages.Confirm(ctx, row.ID, delivery); err != nil {
		log.ErrorContext(ctx, "follow-up sent but not confirmed", slog.String("error", err.Error()))
	}

	res.Type = resultType(entity.Capabilities{HasPhone: delivery.Channel == entity.ChannelWhatsApp, HasEmail: true}, attempt)
	res.Status = ResultSuccess
	log.InfoContext(ctx, "follow-up sent", slog.String("channel", string(delivery.Channel)))
	return res
}

func resultType(caps entity.Capabilities, attempt int) string {
	switch {
	case caps.HasPhone && attempt <= 1:
		return ResultWhatsAppNew
	case caps.HasPhone:
		return ResultWhatsAppRetry
	case attempt <= 1:
		return ResultEmailNew
	default:
		return ResultEmailRetry
	}
}

func (r FollowUpResult) fail(err error) FollowUpResult {
	r.Status = ResultError
	r.Error = err.Error()
	return r
}

func (r FollowUpResult) skip(reason string) FollowUpResult {
	r.Status = ResultSkipped
	r.Error = reason
	return r
}
