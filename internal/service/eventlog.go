package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pimonitor"
	"pimonitor/internal/logger"
	"pimonitor/internal/repository"
)

// storeTimeout bounds local writes made from poll callbacks.
const storeTimeout = 2 * time.Second

var (
	errInvalidTimeRange = errors.New("invalid time range: from must be <= to")
)

type EventLogService struct {
	activityRepo repository.ActivityRepo
}

func NewEventLogService(activityRepo repository.ActivityRepo) *EventLogService {
	return &EventLogService{activityRepo: activityRepo}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeRange converts both bounds to UTC and rejects from > to.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from, to = normalizeToUTC(from), normalizeToUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, errInvalidTimeRange
	}
	return from, to, nil
}

// normalizeAndValidateFilter prepares activity query parameters.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	return from, to, normalizeEventType(f.Type), nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]pimonitor.ActivityEvent, error) {
	if s.activityRepo == nil {
		return nil, ErrPersistenceDisabled
	}
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.activityRepo.List(ctx, from, to, typ)
}

// recordActivity appends to the activity log when persistence is enabled.
// Failures are logged and otherwise ignored.
func recordActivity(repo repository.ActivityRepo, log *logger.Logger, typ, desc string, meta any) {
	if repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	err := repo.Append(ctx, pimonitor.ActivityEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		log.Warnw("activity_append_failed", "type", typ, "err", err)
	}
}
