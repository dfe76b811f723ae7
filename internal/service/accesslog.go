package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pimonitor"
	"pimonitor/internal/client"
	"pimonitor/internal/logger"
	"pimonitor/internal/poller"
	"pimonitor/internal/repository"
)

// AccessLogState is the access-log cell.
type AccessLogState struct {
	Entries []pimonitor.AccessLogEntry `json:"entries"`
	Loading bool                       `json:"loading"`
}

// AccessLogService polls the backend access log and applies deletions.
type AccessLogService struct {
	backend  Backend
	activity repository.ActivityRepo
	log      *logger.Logger
	onChange func(AccessLogState)

	mu     sync.Mutex
	state  AccessLogState
	poller *poller.Poller[[]pimonitor.AccessLogEntry]
}

func NewAccessLogService(backend Backend, interval time.Duration, limit int, activity repository.ActivityRepo, log *logger.Logger) *AccessLogService {
	if log == nil {
		log = logger.Nop()
	}
	if limit <= 0 {
		limit = client.DefaultAccessLogLimit
	}
	s := &AccessLogService{backend: backend, activity: activity, log: log.Named("access_log")}
	s.poller = poller.New(poller.Options[[]pimonitor.AccessLogEntry]{
		Interval: interval,
		Fetch: func(ctx context.Context) ([]pimonitor.AccessLogEntry, error) {
			return backend.ListAccessLogs(ctx, limit)
		},
		Apply:     s.apply,
		OnLoading: s.setLoading,
	})
	return s
}

func (s *AccessLogService) OnChange(fn func(AccessLogState)) { s.onChange = fn }

func (s *AccessLogService) Start(ctx context.Context) { s.poller.Start(ctx) }
func (s *AccessLogService) Suspend()                  { s.poller.Suspend() }
func (s *AccessLogService) Resume()                   { s.poller.Resume() }
func (s *AccessLogService) Stop()                     { s.poller.Stop() }
func (s *AccessLogService) Running() bool             { return s.poller.Running() }

// State returns a copy of the cached list.
func (s *AccessLogService) State() AccessLogState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pimonitor.AccessLogEntry, len(s.state.Entries))
	copy(out, s.state.Entries)
	return AccessLogState{Entries: out, Loading: s.state.Loading}
}

// Refresh fetches now. The cached list is returned even when the fetch fails.
func (s *AccessLogService) Refresh(ctx context.Context) ([]pimonitor.AccessLogEntry, error) {
	err := s.poller.Refresh(ctx)
	return s.State().Entries, err
}

func (s *AccessLogService) setLoading(loading bool) {
	s.mu.Lock()
	s.state.Loading = loading
	s.mu.Unlock()
	s.emit()
}

func (s *AccessLogService) apply(entries []pimonitor.AccessLogEntry, err error) {
	if err != nil {
		s.log.Debugw("access_log_fetch_failed", "err", err)
		return
	}
	if entries == nil {
		entries = []pimonitor.AccessLogEntry{}
	}
	s.mu.Lock()
	s.state.Entries = entries
	s.mu.Unlock()
	s.emit()
}

// Remove deletes one entry remotely, then drops exactly that id from the cache.
func (s *AccessLogService) Remove(ctx context.Context, id string) error {
	if err := s.backend.DeleteAccessLog(ctx, id); err != nil {
		s.log.Errorw("access_log_delete_failed", "id", id, "err", err)
		return fmt.Errorf("delete access log %s: %w", id, err)
	}
	s.poller.Invalidate()

	s.mu.Lock()
	kept := make([]pimonitor.AccessLogEntry, 0, len(s.state.Entries))
	for _, e := range s.state.Entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.state.Entries = kept
	s.mu.Unlock()
	s.emit()

	recordActivity(s.activity, s.log, pimonitor.ActivityAccessLogDelete,
		"Access log entry deleted", map[string]any{"id": id})
	return nil
}

// ClearAll deletes every entry remotely, then empties the cache.
func (s *AccessLogService) ClearAll(ctx context.Context) error {
	if err := s.backend.ClearAccessLogs(ctx); err != nil {
		s.log.Errorw("access_log_clear_failed", "err", err)
		return fmt.Errorf("clear access logs: %w", err)
	}
	s.poller.Invalidate()

	s.mu.Lock()
	n := len(s.state.Entries)
	s.state.Entries = []pimonitor.AccessLogEntry{}
	s.mu.Unlock()
	s.emit()

	recordActivity(s.activity, s.log, pimonitor.ActivityAccessLogClear,
		"Access log cleared", map[string]any{"removed": n})
	return nil
}

func (s *AccessLogService) emit() {
	if s.onChange != nil {
		s.onChange(s.State())
	}
}
