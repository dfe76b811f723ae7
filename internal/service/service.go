package service

import (
	"context"
	"errors"
	"time"

	"pimonitor"
	"pimonitor/internal/bus"
	"pimonitor/internal/repository"
)

// ErrPersistenceDisabled is returned by services that need the local database
// when the daemon runs without one.
var ErrPersistenceDisabled = errors.New("local persistence is disabled")

// Backend is the Pi backend HTTP API. *client.Client implements it.
type Backend interface {
	FetchReading(ctx context.Context) (pimonitor.SensorReading, error)
	FetchDetectionStatus(ctx context.Context) (pimonitor.DetectionStatus, error)
	ToggleDetection(ctx context.Context, upd pimonitor.DetectionUpdate) (pimonitor.DetectionStatus, error)
	FetchHealth(ctx context.Context) (pimonitor.HealthStatus, error)
	ListAccessLogs(ctx context.Context, limit int) ([]pimonitor.AccessLogEntry, error)
	DeleteAccessLog(ctx context.Context, id string) error
	ClearAccessLogs(ctx context.Context) error
}

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes the combined dashboard state and its change feed.
type Monitoring interface {
	Snapshot() DashboardState
	Subscribe(buffer int) (<-chan bus.Event, func())
	Announce(t bus.EventType, data any)
}

// Sensor refreshes the temperature/humidity cell on demand.
type Sensor interface {
	RefreshReading(ctx context.Context) (ReadingState, error)
}

// Detection flips one of the backend detection flags.
type Detection interface {
	ToggleDetection(ctx context.Context, key pimonitor.DetectionKey) (pimonitor.DetectionStatus, error)
}

// Stream controls the local play/pause flag of the camera feed.
type Stream interface {
	ToggleStream() StreamState
}

// AccessLog reads and mutates the backend access log.
type AccessLog interface {
	RefreshAccessLogs(ctx context.Context) ([]pimonitor.AccessLogEntry, error)
	DeleteAccessLog(ctx context.Context, id string) error
	ClearAccessLogs(ctx context.Context) error
}

// Viewers tracks connected browsers and their page visibility.
type Viewers interface {
	JoinViewer() string
	SetViewerVisible(id string, visible bool)
	LeaveViewer(id string)
}

// Health probes the backend liveness endpoint.
type Health interface {
	BackendHealth(ctx context.Context) (pimonitor.HealthStatus, error)
}

// History lists locally stored readings.
type History interface {
	ListReadings(ctx context.Context, f HistoryFilter) ([]pimonitor.ReadingSample, error)
}

// EventLog lists the local activity log.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]pimonitor.ActivityEvent, error)
}

// Service aggregates all sub-services used by the HTTP layer.
type Service struct {
	Monitoring
	Sensor
	Detection
	Stream
	AccessLog
	Viewers
	Health
	History
	EventLog
	Authorization
}

// AuthSettings carries the token signing parameters.
type AuthSettings struct {
	SigningKey string
	TokenTTL   time.Duration
}

// NewService wires the running dashboard and the repositories into the
// service facade consumed by handlers.
func NewService(dash *Dashboard, repos *repository.Repository, auth AuthSettings) *Service {
	if repos == nil {
		repos = &repository.Repository{}
	}
	return &Service{
		Monitoring:    dash,
		Sensor:        dash,
		Detection:     dash,
		Stream:        dash,
		AccessLog:     dash,
		Viewers:       dash,
		Health:        dash,
		History:       NewHistoryService(repos.Readings),
		EventLog:      NewEventLogService(repos.Activity),
		Authorization: NewAuthService(repos.Auth, auth.SigningKey, auth.TokenTTL),
	}
}
