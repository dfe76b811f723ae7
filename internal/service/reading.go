package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"pimonitor"
	"pimonitor/internal/client"
	"pimonitor/internal/logger"
	"pimonitor/internal/poller"
	"pimonitor/internal/repository"
)

const (
	// DefaultSensorError is shown when the backend reports a failed read without a reason.
	DefaultSensorError = "Sensor read failed"
	// ConnectionErrorMessage is shown when the backend cannot be reached at all.
	ConnectionErrorMessage = "Connection error"
)

// ReadingState is the temperature/humidity cell.
type ReadingState struct {
	Reading   *pimonitor.SensorReading `json:"reading,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Loading   bool                     `json:"loading"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Connection derives the status-bar state.
func (s ReadingState) Connection() pimonitor.ConnectionState {
	return pimonitor.DeriveConnectionState(s.Loading, s.Reading != nil, s.Error)
}

// readingErrorMessage maps a fetch failure to the text shown to the user.
func readingErrorMessage(err error) string {
	var he *client.HTTPError
	if errors.As(err, &he) {
		return he.Error()
	}
	return ConnectionErrorMessage
}

// ReadingService polls GET /reading and keeps the last good reading across failures.
type ReadingService struct {
	backend  Backend
	history  repository.ReadingRepo
	activity repository.ActivityRepo
	log      *logger.Logger
	onChange func(ReadingState, bool)

	mu     sync.Mutex
	state  ReadingState
	poller *poller.Poller[pimonitor.SensorReading]
}

func NewReadingService(backend Backend, interval time.Duration, history repository.ReadingRepo, activity repository.ActivityRepo, log *logger.Logger) *ReadingService {
	if log == nil {
		log = logger.Nop()
	}
	s := &ReadingService{
		backend:  backend,
		history:  history,
		activity: activity,
		log:      log.Named("reading"),
	}
	s.poller = poller.New(poller.Options[pimonitor.SensorReading]{
		Interval:  interval,
		Fetch:     backend.FetchReading,
		Apply:     s.apply,
		OnLoading: s.setLoading,
	})
	return s
}

// OnChange registers fn to receive every new state. good is true when the
// change carries a fresh successful reading. Must be set before Start.
func (s *ReadingService) OnChange(fn func(st ReadingState, good bool)) { s.onChange = fn }

// Seed installs a last-known reading before the first fetch completes.
func (s *ReadingService) Seed(r *pimonitor.SensorReading) {
	if r == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.state.Reading = &cp
}

func (s *ReadingService) Start(ctx context.Context) { s.poller.Start(ctx) }
func (s *ReadingService) Suspend()                  { s.poller.Suspend() }
func (s *ReadingService) Resume()                   { s.poller.Resume() }
func (s *ReadingService) Stop()                     { s.poller.Stop() }
func (s *ReadingService) Running() bool             { return s.poller.Running() }

// Refresh fetches now and returns the resulting state.
func (s *ReadingService) Refresh(ctx context.Context) (ReadingState, error) {
	err := s.poller.Refresh(ctx)
	return s.State(), err
}

func (s *ReadingService) State() ReadingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ReadingService) setLoading(loading bool) {
	s.mu.Lock()
	s.state.Loading = loading
	st := s.state
	s.mu.Unlock()
	s.emit(st, false)
}

func (s *ReadingService) apply(r pimonitor.SensorReading, err error) {
	s.mu.Lock()
	prevErr := s.state.Error
	good := false
	switch {
	case err != nil:
		s.state.Error = readingErrorMessage(err)
	case !r.Success:
		s.state.Error = r.Error
		if s.state.Error == "" {
			s.state.Error = DefaultSensorError
		}
	default:
		cp := r
		s.state.Reading = &cp
		s.state.Error = ""
		good = true
	}
	s.state.UpdatedAt = time.Now().UTC()
	st := s.state
	s.mu.Unlock()

	switch {
	case prevErr == "" && st.Error != "":
		s.log.Warnw("sensor_error", "error", st.Error, "err", err)
		recordActivity(s.activity, s.log, pimonitor.ActivitySensorError, st.Error, nil)
	case prevErr != "" && st.Error == "":
		s.log.Infow("sensor_recovered")
		recordActivity(s.activity, s.log, pimonitor.ActivitySensorRecovered, "Sensor online", nil)
	}
	if good {
		s.appendHistory(r)
	}
	s.emit(st, good)
}

func (s *ReadingService) appendHistory(r pimonitor.SensorReading) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	err := s.history.Append(ctx, pimonitor.ReadingSample{
		RecordedAt:            time.Now().UTC(),
		TemperatureCelsius:    r.TemperatureCelsius,
		TemperatureFahrenheit: r.TemperatureFahrenheit,
		HumidityPercent:       r.HumidityPercent,
		SourceTimestamp:       r.Timestamp,
	})
	if err != nil {
		s.log.Warnw("reading_history_append_failed", "err", err)
	}
}

func (s *ReadingService) emit(st ReadingState, good bool) {
	if s.onChange != nil {
		s.onChange(st, good)
	}
}
