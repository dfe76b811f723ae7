package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pimonitor"
	"pimonitor/internal/logger"
	"pimonitor/internal/poller"
	"pimonitor/internal/repository"
)

var ErrToggleInProgress = errors.New("a detection toggle is already in progress")

// DetectionState is the detection-toggles cell.
type DetectionState struct {
	Status   pimonitor.DetectionStatus `json:"status"`
	Toggling bool                      `json:"toggling"`
	Loaded   bool                      `json:"loaded"`
}

// DetectionService fetches the detection flags once on mount and flips them on demand.
type DetectionService struct {
	backend  Backend
	activity repository.ActivityRepo
	log      *logger.Logger
	onChange func(DetectionState, bool)

	mu     sync.Mutex
	state  DetectionState
	poller *poller.Poller[pimonitor.DetectionStatus]
}

func NewDetectionService(backend Backend, activity repository.ActivityRepo, log *logger.Logger) *DetectionService {
	if log == nil {
		log = logger.Nop()
	}
	s := &DetectionService{backend: backend, activity: activity, log: log.Named("detection")}
	s.poller = poller.New(poller.Options[pimonitor.DetectionStatus]{
		Fetch: backend.FetchDetectionStatus,
		Apply: s.apply,
	})
	return s
}

// OnChange registers fn. confirmed is true when the state came from the backend.
func (s *DetectionService) OnChange(fn func(st DetectionState, confirmed bool)) { s.onChange = fn }

func (s *DetectionService) Seed(st pimonitor.DetectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = st
}

func (s *DetectionService) Start(ctx context.Context) { s.poller.Start(ctx) }
func (s *DetectionService) Stop()                     { s.poller.Stop() }

func (s *DetectionService) State() DetectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *DetectionService) apply(st pimonitor.DetectionStatus, err error) {
	if err != nil {
		s.log.Debugw("detection_status_fetch_failed", "err", err)
		return
	}
	s.mu.Lock()
	s.state.Status = st
	s.state.Loaded = true
	cur := s.state
	s.mu.Unlock()
	s.emit(cur, true)
}

// Toggle sends {key: !current} and adopts the backend's answer as the new state.
// On failure the state is left unchanged and the error is returned.
func (s *DetectionService) Toggle(ctx context.Context, key pimonitor.DetectionKey) (pimonitor.DetectionStatus, error) {
	s.mu.Lock()
	if s.state.Toggling {
		s.mu.Unlock()
		return pimonitor.DetectionStatus{}, ErrToggleInProgress
	}
	s.state.Toggling = true
	want := !s.state.Status.Get(key)
	cur := s.state
	s.mu.Unlock()
	s.emit(cur, false)

	st, err := s.backend.ToggleDetection(ctx, pimonitor.NewDetectionUpdate(key, want))
	if err == nil {
		// a mount fetch still in flight must not overwrite the confirmed state
		s.poller.Invalidate()
	}

	s.mu.Lock()
	s.state.Toggling = false
	if err == nil {
		s.state.Status = st
		s.state.Loaded = true
	}
	cur = s.state
	s.mu.Unlock()
	s.emit(cur, err == nil)

	if err != nil {
		s.log.Errorw("detection_toggle_failed", "key", key, "err", err)
		return cur.Status, fmt.Errorf("toggle %s: %w", key, err)
	}
	recordActivity(s.activity, s.log, pimonitor.ActivityDetectionToggle,
		fmt.Sprintf("%s detection %s", key, onOff(st.Get(key))),
		map[string]any{"key": string(key), "requested": want, "faces": st.Faces, "objects": st.Objects})
	return st, nil
}

func (s *DetectionService) emit(st DetectionState, confirmed bool) {
	if s.onChange != nil {
		s.onChange(st, confirmed)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
