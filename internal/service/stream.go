package service

import (
	"sync"

	"pimonitor/internal/client"
)

// StreamState is the camera stream cell.
type StreamState struct {
	Playing bool   `json:"playing"`
	URL     string `json:"url"`
}

// StreamService holds the local play/pause flag. Nothing is sent to the backend;
// pausing simply drops the <img> source.
type StreamService struct {
	respectManualPause bool

	mu           sync.Mutex
	playing      bool
	manualPaused bool
}

func NewStreamService(respectManualPause bool) *StreamService {
	return &StreamService{respectManualPause: respectManualPause, playing: true}
}

func (s *StreamService) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *StreamService) stateLocked() StreamState {
	st := StreamState{Playing: s.playing}
	if s.playing {
		st.URL = client.VideoFeedPath
	}
	return st
}

// Toggle flips the playing flag on user request.
func (s *StreamService) Toggle() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = !s.playing
	s.manualPaused = !s.playing
	return s.stateLocked()
}

// SetVisible force-pauses on hide. On show it resumes unless the user paused
// explicitly and respectManualPause is set.
func (s *StreamService) SetVisible(visible bool) StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !visible:
		s.playing = false
	case !s.respectManualPause || !s.manualPaused:
		s.playing = true
		s.manualPaused = false
	}
	return s.stateLocked()
}
