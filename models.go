package pimonitor

import (
	"errors"
	"time"
)

// SensorReading is a single temperature/humidity snapshot as returned by the backend.
type SensorReading struct {
	Success               bool    `json:"success"`
	TemperatureCelsius    float64 `json:"temperature_celsius"`
	TemperatureFahrenheit float64 `json:"temperature_fahrenheit"`
	HumidityPercent       float64 `json:"humidity_percent"`
	Timestamp             string  `json:"timestamp"`
	Error                 string  `json:"error,omitempty"`
}

// HealthStatus is the backend liveness probe response.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// DetectionKey names one of the detection toggles.
type DetectionKey string

const (
	DetectionFaces   DetectionKey = "faces"
	DetectionObjects DetectionKey = "objects"
)

var ErrUnknownDetectionKey = errors.New("unknown detection key: must be faces or objects")

// ParseDetectionKey validates a toggle name coming from a URL or a broker topic.
func ParseDetectionKey(s string) (DetectionKey, error) {
	switch DetectionKey(s) {
	case DetectionFaces, DetectionObjects:
		return DetectionKey(s), nil
	default:
		return "", ErrUnknownDetectionKey
	}
}

// DetectionStatus holds the two independent detection flags.
type DetectionStatus struct {
	Faces   bool `json:"faces"`
	Objects bool `json:"objects"`
}

// Get returns the flag for key.
func (s DetectionStatus) Get(key DetectionKey) bool {
	if key == DetectionObjects {
		return s.Objects
	}
	return s.Faces
}

// DetectionUpdate is a partial toggle request; nil fields are not sent.
type DetectionUpdate struct {
	Faces   *bool `json:"faces,omitempty"`
	Objects *bool `json:"objects,omitempty"`
}

// NewDetectionUpdate builds an update that carries only key.
func NewDetectionUpdate(key DetectionKey, value bool) DetectionUpdate {
	v := value
	if key == DetectionObjects {
		return DetectionUpdate{Objects: &v}
	}
	return DetectionUpdate{Faces: &v}
}

// AccessLogEntry is a detection event recorded by the backend.
type AccessLogEntry struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Labels    []string `json:"labels"`
	Count     int      `json:"count"`
	Image     string   `json:"image"`
}

// ConnectionState is derived from the reading cell and never stored.
type ConnectionState string

const (
	ConnectionOnline  ConnectionState = "online"
	ConnectionLoading ConnectionState = "loading"
	ConnectionError   ConnectionState = "error"
)

// DeriveConnectionState computes the status-bar state from the reading cell.
func DeriveConnectionState(loading, hasData bool, errMsg string) ConnectionState {
	switch {
	case loading && !hasData:
		return ConnectionLoading
	case errMsg != "":
		return ConnectionError
	default:
		return ConnectionOnline
	}
}

// ReadingSample is a successful reading kept in the local history.
type ReadingSample struct {
	ID                    string    `json:"id"`
	RecordedAt            time.Time `json:"recorded_at"`
	TemperatureCelsius    float64   `json:"temperature_celsius"`
	TemperatureFahrenheit float64   `json:"temperature_fahrenheit"`
	HumidityPercent       float64   `json:"humidity_percent"`
	SourceTimestamp       string    `json:"source_timestamp"`
}

// ActivityEvent is a single entry of the local activity log.
type ActivityEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // DETECTION_TOGGLE | ACCESS_LOG_DELETE | ACCESS_LOG_CLEAR | SENSOR_ERROR | ...
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// Activity event types.
const (
	ActivityDetectionToggle = "DETECTION_TOGGLE"
	ActivityAccessLogDelete = "ACCESS_LOG_DELETE"
	ActivityAccessLogClear  = "ACCESS_LOG_CLEAR"
	ActivitySensorError     = "SENSOR_ERROR"
	ActivitySensorRecovered = "SENSOR_RECOVERED"
	ActivityPollSuspended   = "POLLING_SUSPENDED"
	ActivityPollResumed     = "POLLING_RESUMED"
)

// Snapshot is the last-known state persisted between restarts.
type Snapshot struct {
	Reading   *SensorReading  `json:"reading,omitempty"`
	Detection DetectionStatus `json:"detection"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don’t expose hash
}
