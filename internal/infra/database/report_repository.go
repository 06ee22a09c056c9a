package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/xavierca1/lead-followup/internal/entity"
)

const (
	clickTable    = "click_tracking"
	responseTable = "message_responses"
)

var sellerIDExpr = goqu.L("COALESCE(additional_data->'data'->>'seller_id', '')")

type ReportRepository struct {
	client *ReportingClient
	now    func() time.Time
}

func NewReportRepository(client *ReportingClient) *ReportRepository {
	return &ReportRepository{client: client, now: time.Now}
}

func (r *ReportRepository) ClickStats(ctx context.Context, template string, days uint) (*entity.ClickStats, error) {
	stats := &entity.ClickStats{DailyStats: []entity.DailyClickStats{}}

	summary := goqu.From(clickTable).
		Select(
			goqu.COUNT(goqu.Star()).As("total_clicks"),
			goqu.COUNT(goqu.DISTINCT("contact_id")).As("unique_contacts"),
			goqu.COUNT(goqu.DISTINCT("email")).As("unique_emails"),
			goqu.COUNT("response").As("total_responses"),
			countWhereResponse("yes").As("positive_responses"),
			countWhereResponse("no").As("negative_responses"),
		).
		Where(goqu.C("template_name").Eq(template))

	if err := r.client.Get(ctx, &stats.Summary, summary); err != nil {
		return nil, fmt.Errorf("error loading click summary: %w", err)
	}

	since := r.now().UTC().AddDate(0, 0, -int(days))
	day := goqu.L("DATE(created_at)")
	daily := goqu.From(clickTable).
		Select(
			goqu.L("TO_CHAR(DATE(created_at), 'YYYY-MM-DD')").As("date"),
			goqu.COUNT(goqu.Star()).As("total_clicks"),
			countWhereResponse("yes").As("yes_responses"),
			countWhereResponse("no").As("no_responses"),
		).
		Where(
			goqu.C("template_name").Eq(template),
			goqu.C("created_at").Gte(since),
		).
		GroupBy(day).
		Order(day.Desc()).
		Limit(days)

	if err := r.client.Select(ctx, &stats.DailyStats, daily); err != nil {
		return nil, fmt.Errorf("error loading daily click stats: %w", err)
	}

	return stats, nil
}

// SellerResponseStats counts seller choices per seller id.
func (r *ReportRepository) SellerResponseStats(ctx context.Context) ([]entity.SellerResponseStats, error) {
	ds := goqu.From(responseTable).
		Select(
			sellerIDExpr.As("seller_id"),
			goqu.MAX("response_text").As("seller_name"),
			goqu.COUNT(goqu.Star()).As("total_selections"),
			goqu.MAX("created_at").As("last_selected_at"),
		).
		Where(goqu.C("template_name").Eq(entity.ResponseSellerSelected)).
		GroupBy(sellerIDExpr).
		Order(goqu.I("total_selections").Desc())

	var stats []entity.SellerResponseStats
	if err := r.client.Select(ctx, &stats, ds); err != nil {
		return nil, fmt.Errorf("error loading seller stats: %w", err)
	}
	return stats, nil
}

func countWhereResponse(value string) exp.LiteralExpression {
	return goqu.L("COALESCE(SUM(CASE WHEN response = ? THEN 1 ELSE 0 END), 0)", value)
}
