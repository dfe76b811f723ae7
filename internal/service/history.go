package service

import (
	"context"

	"pimonitor"
	"pimonitor/internal/repository"
)

// HistoryService serves the locally recorded readings.
type HistoryService struct {
	readings repository.ReadingRepo
}

func NewHistoryService(readings repository.ReadingRepo) *HistoryService {
	return &HistoryService{readings: readings}
}

func (s *HistoryService) ListReadings(ctx context.Context, f HistoryFilter) ([]pimonitor.ReadingSample, error) {
	if s.readings == nil {
		return nil, ErrPersistenceDisabled
	}
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.readings.List(ctx, from, to, f.Limit)
}
