//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xavierca1/lead-followup/internal/config"
	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/database"
)

var (
	db        *sql.DB
	reporting *database.ReportingClient
	pg        = goqu.Dialect("postgres")
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15.3-alpine",
		postgres.WithDatabase("lead_followup"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to get connection string: %s", err)
	}

	db, err = database.NewDBConnection(config.Database{URL: dsn, MaxOpenConns: 5, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	if err != nil {
		log.Fatalf("failed to connect: %s", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate: %s", err)
	}
	// a second run must be a no-op
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to re-run migration: %s", err)
	}

	reporting, err = database.NewReportingClient(dsn, 2, 1)
	if err != nil {
		log.Fatalf("failed to open reporting client: %s", err)
	}
	defer reporting.Close()

	return m.Run()
}

func cleanup(t *testing.T) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE click_tracking, message_responses, messages, deal_sellers, deals, contacts RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func insertReturningID(t *testing.T, table string, rec goqu.Record) int64 {
	t.Helper()
	q, args, err := pg.Insert(table).Rows(rec).Returning("id").ToSQL()
	require.NoError(t, err)

	var id int64
	require.NoError(t, db.QueryRow(q, args...).Scan(&id))
	return id
}

func createContact(t *testing.T, name, phone, email string) int64 {
	t.Helper()
	rec := goqu.Record{"name": name, "last_name": "Petrov"}
	if phone != "" {
		rec["phone"] = phone
	}
	if email != "" {
		rec["email"] = email
	}
	return insertReturningID(t, "contacts", rec)
}

func createMessageAt(t *testing.T, contactID int64, stage, prefix string, attempt int, at time.Time) int64 {
	t.Helper()
	rec := goqu.Record{
		"contact_id":    contactID,
		"message_type":  "whatsapp",
		"template_name": stage,
		"status":        int(entity.MessageStatusSent),
		"created_at":    at,
	}
	if prefix != "" {
		rec["stage_prefix"] = prefix
		rec["attempt"] = attempt
	}
	return insertReturningID(t, "messages", rec)
}

func TestContactRepository(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := database.NewContactRepository(db)

	id := createContact(t, "Ivan", "380501112233", "Ivan@Example.com")

	byPhone, err := repo.FindByPhone(ctx, "+380501112233")
	require.NoError(t, err)
	assert.Equal(t, id, byPhone.ID)

	byEmail, err := repo.FindByEmail(ctx, "ivan@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)

	_, err = repo.FindByID(ctx, id+100)
	assert.ErrorIs(t, err, entity.ErrContactNotFound)
}

func TestSellerRepository_DistinctAcrossDeals(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()

	contactID := createContact(t, "Ivan", "380501112233", "")
	deal1 := insertReturningID(t, "deals", goqu.Record{"contact_id": contactID})
	deal2 := insertReturningID(t, "deals", goqu.Record{"contact_id": contactID})
	insertReturningID(t, "deal_sellers", goqu.Record{"deal_id": deal1, "name": "Dan", "last_name": "Fox"})
	insertReturningID(t, "deal_sellers", goqu.Record{"deal_id": deal1, "name": "Olga", "last_name": "Kim"})
	insertReturningID(t, "deal_sellers", goqu.Record{"deal_id": deal2, "name": "Dan", "last_name": "Fox"})

	sellers, err := database.NewSellerRepository(db).ListForContact(ctx, contactID)
	require.NoError(t, err)
	require.Len(t, sellers, 2)
	assert.Equal(t, "Dan", sellers[0].Name)
	assert.Equal(t, deal1, sellers[0].DealID)
	assert.Equal(t, "Olga", sellers[1].Name)
}

func TestMessageRepository_SaveAndHistory(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := database.NewMessageRepository(db)
	contactID := createContact(t, "Ivan", "380501112233", "")

	first := &entity.Message{ContactID: contactID, Channel: entity.ChannelWhatsApp, Stage: "day1", Status: entity.MessageStatusSent, ProviderContactID: "sp-1"}
	require.NoError(t, repo.Save(ctx, first))
	second := &entity.Message{ContactID: contactID, Channel: entity.ChannelEmail, Stage: "days4_reason", Body: "<p>why?</p>", Status: entity.MessageStatusSent}
	require.NoError(t, repo.Save(ctx, second))

	history, err := repo.ListByContact(ctx, contactID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")
	assert.Equal(t, "sp-1", history[1].ProviderContactID)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, entity.MessageStatusUndeliverable, "Message was not delivered"))

	latest, err := repo.LatestByStages(ctx, contactID, []string{"day1"})
	require.NoError(t, err)
	assert.Equal(t, entity.MessageStatusUndeliverable, latest.Status)
	assert.Equal(t, "Message was not delivered", latest.StatusDescription)

	_, err = repo.LatestByStages(ctx, contactID, []string{"buying_intent"})
	assert.ErrorIs(t, err, entity.ErrNoMessages)
}

func TestMessageRepository_ReserveIsUniquePerAttempt(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := database.NewMessageRepository(db)
	contactID := createContact(t, "Ivan", "380501112233", "")

	row := &entity.Message{ContactID: contactID, Stage: "days4", StagePrefix: entity.FollowUpPrefix, Attempt: 1}
	require.NoError(t, repo.Reserve(ctx, row))

	dup := &entity.Message{ContactID: contactID, Stage: "days4", StagePrefix: entity.FollowUpPrefix, Attempt: 1}
	assert.ErrorIs(t, repo.Reserve(ctx, dup), entity.ErrAttemptTaken)

	require.NoError(t, repo.Confirm(ctx, row.ID, entity.Delivery{
		Channel:           entity.ChannelWhatsApp,
		Body:              "follow-up",
		ProviderMessageID: "sp-msg-1",
		Status:            entity.MessageStatusSent,
	}))

	latest, err := repo.LatestAttempt(ctx, contactID, entity.FollowUpPrefix)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Attempt)
	assert.Equal(t, "sp-msg-1", latest.ProviderMessageID)

	// a confirmed row is no longer pending and survives a release
	require.NoError(t, repo.Release(ctx, row.ID))
	_, err = repo.LatestAttempt(ctx, contactID, entity.FollowUpPrefix)
	require.NoError(t, err)

	second := &entity.Message{ContactID: contactID, Stage: "days4_retry_2", StagePrefix: entity.FollowUpPrefix, Attempt: 2}
	require.NoError(t, repo.Reserve(ctx, second))
	require.NoError(t, repo.Release(ctx, second.ID))
	require.NoError(t, repo.Reserve(ctx, &entity.Message{ContactID: contactID, Stage: "days4_retry_2", StagePrefix: entity.FollowUpPrefix, Attempt: 2}),
		"a released attempt can be reserved again")
}

func TestMessageRepository_FollowUpCandidates(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := database.NewMessageRepository(db)
	cutoff := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-48 * time.Hour)
	recent := cutoff.Add(24 * time.Hour)

	due := createContact(t, "Due", "380500000001", "")
	createMessageAt(t, due, "day1", "", 0, old)

	tooRecent := createContact(t, "Recent", "380500000002", "")
	createMessageAt(t, tooRecent, "day1", "", 0, recent)

	retry := createContact(t, "Retry", "380500000003", "")
	createMessageAt(t, retry, "day1", "", 0, old.Add(-10*24*time.Hour))
	createMessageAt(t, retry, "days4", entity.FollowUpPrefix, 1, old)

	answered := createContact(t, "Answered", "380500000004", "")
	createMessageAt(t, answered, "days4", entity.FollowUpPrefix, 1, old)
	require.NoError(t, database.NewResponseRepository(db).Save(ctx, &entity.Response{ContactID: answered, Stage: entity.ResponseDays4, Text: "no"}))

	clicked := createContact(t, "Clicked", "", "clicked@example.com")
	createMessageAt(t, clicked, "days4", entity.FollowUpPrefix, 1, old)
	require.NoError(t, database.NewClickRepository(db).Save(ctx, &entity.ClickEvent{ContactID: &clicked, Email: "clicked@example.com", Stage: "days4", Response: "yes"}))

	exhausted := createContact(t, "Exhausted", "380500000006", "")
	for i := 1; i <= 3; i++ {
		createMessageAt(t, exhausted, entity.FollowUpStageName(i), entity.FollowUpPrefix, i, old)
	}

	shownSellers := createContact(t, "Sellers", "380500000007", "")
	createMessageAt(t, shownSellers, "day1", "", 0, old)
	createMessageAt(t, shownSellers, "days4_seller_selection", "", 0, old.Add(time.Hour))

	chose := createContact(t, "Chose", "380500000008", "")
	createMessageAt(t, chose, "days4", entity.FollowUpPrefix, 1, old)
	require.NoError(t, database.NewResponseRepository(db).Save(ctx, &entity.Response{ContactID: chose, Stage: entity.ResponseSellerSelected, Text: "Dan Fox"}))

	first, err := repo.FindFirstFollowUpDue(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, due, first[0].Contact.ID)
	assert.Equal(t, 0, first[0].Attempts)

	retries, err := repo.FindRetryDue(ctx, cutoff, 3)
	require.NoError(t, err)
	require.Len(t, retries, 1)
	assert.Equal(t, retry, retries[0].Contact.ID)
	assert.Equal(t, 1, retries[0].Attempts)
	require.NotNil(t, retries[0].LastSentAt)
	assert.True(t, retries[0].LastSentAt.Equal(old))

	latest, err := repo.LatestAttempt(ctx, shownSellers, entity.FollowUpPrefix)
	require.NoError(t, err)
	assert.Equal(t, "days4_seller_selection", latest.Stage)
	assert.Equal(t, 1, latest.Attempt)

	latest, err = repo.LatestAttempt(ctx, exhausted, entity.FollowUpPrefix)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Attempt)

	_, err = repo.LatestAttempt(ctx, due, entity.FollowUpPrefix)
	assert.ErrorIs(t, err, entity.ErrNoMessages)
}

func TestResponseRepository_ExtraRoundTrip(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := database.NewResponseRepository(db)
	contactID := createContact(t, "Ivan", "380501112233", "")

	at := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, &entity.Response{
		ContactID: contactID,
		Stage:     entity.ResponseSellerSelected,
		Text:      "Dan Fox",
		Extra:     entity.SellerChoiceExtra{SellerID: 12, Name: "Dan", LastName: "Fox", Timestamp: at},
	}))
	require.NoError(t, repo.Save(ctx, &entity.Response{ContactID: contactID, Stage: entity.ResponseDays4, Text: "yes"}))

	got, err := repo.ListByContact(ctx, contactID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Extra)

	choice, ok := got[1].Extra.(entity.SellerChoiceExtra)
	require.True(t, ok, "extra decoded as %T", got[1].Extra)
	assert.Equal(t, int64(12), choice.SellerID)
	assert.True(t, choice.Timestamp.Equal(at))
}

func TestReportRepository(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	clicks := database.NewClickRepository(db)
	responses := database.NewResponseRepository(db)
	reports := database.NewReportRepository(reporting)

	ivan := createContact(t, "Ivan", "", "ivan@example.com")
	olga := createContact(t, "Olga", "", "olga@example.com")

	for _, c := range []*entity.ClickEvent{
		{ContactID: &ivan, Email: "ivan@example.com", Stage: "days4", Response: "yes"},
		{ContactID: &ivan, Email: "ivan@example.com", Stage: "days4", Response: "no"},
		{ContactID: &olga, Email: "olga@example.com", Stage: "days4", Response: "yes"},
		{Email: "unknown", Stage: "days4"},
		{ContactID: &olga, Email: "olga@example.com", Stage: "buying_intent", Response: "yes_buy"},
	} {
		require.NoError(t, clicks.Save(ctx, c))
	}

	stats, err := reports.ClickStats(ctx, "days4", 30)
	require.NoError(t, err)
	assert.Equal(t, entity.ClickSummary{
		TotalClicks:       4,
		UniqueContacts:    2,
		UniqueEmails:      3,
		TotalResponses:    3,
		PositiveResponses: 2,
		NegativeResponses: 1,
	}, stats.Summary)
	require.Len(t, stats.DailyStats, 1)
	assert.Equal(t, 4, stats.DailyStats[0].TotalClicks)

	for _, choice := range []entity.SellerChoiceExtra{{SellerID: 12, Name: "Dan"}, {SellerID: 12, Name: "Dan"}, {SellerID: 7, Name: "Olga"}} {
		require.NoError(t, responses.Save(ctx, &entity.Response{ContactID: ivan, Stage: entity.ResponseSellerSelected, Text: choice.Name, Extra: choice}))
	}

	sellers, err := reports.SellerResponseStats(ctx)
	require.NoError(t, err)
	require.Len(t, sellers, 2)
	assert.Equal(t, "12", sellers[0].SellerID)
	assert.Equal(t, 2, sellers[0].TotalSelections)
	assert.Equal(t, "7", sellers[1].SellerID)
}
