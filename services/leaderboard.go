package services

import (
	"context"

	"gorm.io/gorm"

	"atrium/models"
	"atrium/utils"
)

const defaultLeaderboardSize = 5

// LeaderboardService aggregates recorded sales and calls into ranked
// per-user totals. Plain read-and-rank queries, no engine involvement.
type LeaderboardService struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewLeaderboardService(db *gorm.DB, logger *utils.Logger) *LeaderboardService {
	return &LeaderboardService{db: db, logger: logger}
}

func (s *LeaderboardService) Sales(ctx context.Context, topN int) ([]models.LeaderboardEntry, error) {
	return s.aggregate(ctx, "sales", topN)
}

func (s *LeaderboardService) Calls(ctx context.Context, topN int) ([]models.LeaderboardEntry, error) {
	return s.aggregate(ctx, "calls", topN)
}

func (s *LeaderboardService) aggregate(ctx context.Context, table string, topN int) ([]models.LeaderboardEntry, error) {
	if topN <= 0 {
		topN = defaultLeaderboardSize
	}

	var entries []models.LeaderboardEntry
	err := s.db.WithContext(ctx).
		Table(table).
		Select("user_id, SUM(count) AS count, MAX(date) AS date").
		Group("user_id").
		Order("count DESC").
		Limit(topN).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

// RecordSale inserts a sale row for the leaderboard.
func (s *LeaderboardService) RecordSale(ctx context.Context, sale *models.Sale) error {
	return s.db.WithContext(ctx).Create(sale).Error
}

// RecordCall inserts a call row for the leaderboard.
func (s *LeaderboardService) RecordCall(ctx context.Context, call *models.Call) error {
	return s.db.WithContext(ctx).Create(call).Error
}
