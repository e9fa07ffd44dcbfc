// This file implements the dashboard statistics service.
package service

import (
	"context"
	"log/slog"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/repository"
)

// DashboardStats is the fleet-wide summary shown on the dashboard.
type DashboardStats struct {
	TowerCount int64

	// Antenna equipment totals across all towers.
	AntennaRF    int64
	AntennaRRU   int64
	AntennaMW    int64
	AntennaTotal int64

	// Completed cleanliness records by classification.
	CleanlinessCounts map[string]int64

	// Completed voltage records by profile.
	VoltageProfiles map[string]int64
}

// StatsService computes aggregate dashboard statistics.
type StatsService interface {
	// Dashboard returns the fleet-wide summary. Only COMPLETED records count
	// toward the classification and profile buckets.
	Dashboard(ctx context.Context) (*DashboardStats, error)
}

type statsService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(queries *repository.Queries, logger *slog.Logger) StatsService {
	return &statsService{
		queries: queries,
		logger:  logger,
	}
}

// Dashboard returns the fleet-wide summary.
func (s *statsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	const op = "StatsService.Dashboard"

	towerCount, err := s.queries.CountTowers(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count towers")
	}

	sums, err := s.queries.SumAntennaCounts(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to sum antenna counts")
	}

	classifications, err := s.queries.CountRecordsByClassification(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count classifications")
	}

	profiles, err := s.queries.CountRecordsByProfile(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count voltage profiles")
	}

	stats := &DashboardStats{
		TowerCount:        towerCount,
		AntennaRF:         sums.AntennaRf,
		AntennaRRU:        sums.AntennaRru,
		AntennaMW:         sums.AntennaMw,
		AntennaTotal:      sums.AntennaRf + sums.AntennaRru + sums.AntennaMw,
		CleanlinessCounts: groupCountMap(classifications),
		VoltageProfiles:   groupCountMap(profiles),
	}
	return stats, nil
}

func groupCountMap(counts []repository.GroupCount) map[string]int64 {
	m := make(map[string]int64, len(counts))
	for _, c := range counts {
		m[c.Key] = c.Count
	}
	return m
}
