package usecase

import (
	"context"

	"github.com/xavierca1/lead-followup/internal/entity"
)

const (
	statsTemplate = "days4"
	statsDays     = 30
)

type StatsUseCase struct {
	Reports entity.ReportRepositoryInterface
}

func NewStatsUseCase(reports entity.ReportRepositoryInterface) *StatsUseCase {
	return &StatsUseCase{Reports: reports}
}

// ClickStats summarises days4 link clicks over the last 30 days.
func (uc *StatsUseCase) ClickStats(ctx context.Context) (*entity.ClickStats, error) {
	stats, err := uc.Reports.ClickStats(ctx, statsTemplate, statsDays)
	if err != nil {
		return nil, storageError("failed to load click stats", err)
	}
	return stats, nil
}

func (uc *StatsUseCase) SellerStats(ctx context.Context) ([]entity.SellerResponseStats, error) {
	stats, err := uc.Reports.SellerResponseStats(ctx)
	if err != nil {
		return nil, storageError("failed to load seller stats", err)
	}
	if stats == nil {
		stats = []entity.SellerResponseStats{}
	}
	return stats, nil
}
