// Package view turns dashboard state into HTML. Everything here is a pure
// function of its input except Expansion and the snapshot cache-buster.
package view

import (
	"fmt"
	"time"

	"pimonitor"
	"pimonitor/internal/client"
	"pimonitor/internal/service"
)

// Placeholder is shown for values that are not known yet.
const Placeholder = "—"

// now stamps the snapshot link.
var now = time.Now

// SensorCardProps feeds the sensor card template.
type SensorCardProps struct {
	Label    string
	Value    string
	Unit     string
	Subtitle string
	Accent   string
}

// Display is the value with its unit, e.g. "21.5 °C".
func (p SensorCardProps) Display() string {
	return p.Value + " " + p.Unit
}

// FormatValue renders v with one decimal, or the placeholder when ok is false.
func FormatValue(v float64, ok bool) string {
	if !ok {
		return Placeholder
	}
	return fmt.Sprintf("%.1f", v)
}

func TemperatureCard(r *pimonitor.SensorReading) SensorCardProps {
	p := SensorCardProps{Label: "Temperature", Unit: "°C", Accent: "temp"}
	if r == nil {
		p.Value = Placeholder
		return p
	}
	p.Value = FormatValue(r.TemperatureCelsius, true)
	p.Subtitle = FormatValue(r.TemperatureFahrenheit, true) + " °F"
	return p
}

func HumidityCard(r *pimonitor.SensorReading) SensorCardProps {
	p := SensorCardProps{Label: "Humidity", Unit: "%", Subtitle: "Relative humidity", Accent: "humid"}
	if r == nil {
		p.Value = Placeholder
		return p
	}
	p.Value = FormatValue(r.HumidityPercent, true)
	return p
}

// CameraFeedProps feeds the camera panel.
type CameraFeedProps struct {
	StreamURL string
	Playing   bool
}

type StreamControlsProps struct {
	Playing     bool
	Faces       bool
	Objects     bool
	Toggling    bool
	FeedURL     string
	SnapshotURL string
}

// StatusBarProps feeds the connection status bar.
type StatusBarProps struct {
	State     pimonitor.ConnectionState
	Label     string
	Timestamp string
	Error     string
	Loading   bool
}

// StatusLabel maps a connection state to its status-bar text.
func StatusLabel(s pimonitor.ConnectionState) string {
	switch s {
	case pimonitor.ConnectionLoading:
		return "Connecting…"
	case pimonitor.ConnectionError:
		return "Connection error"
	default:
		return "Sensor online"
	}
}

func StatusBar(st service.ReadingState) StatusBarProps {
	conn := st.Connection()
	p := StatusBarProps{
		State:   conn,
		Label:   StatusLabel(conn),
		Error:   st.Error,
		Loading: st.Loading,
	}
	if st.Reading != nil {
		p.Timestamp = st.Reading.Timestamp
	}
	return p
}

// AccessLogEntryProps is one row of the access log.
type AccessLogEntryProps struct {
	ID        string
	Title     string
	Timestamp string
	Labels    []string
	Multiple  bool
	Expanded  bool
	ImageURL  string
}

type AccessLogProps struct {
	Entries []AccessLogEntryProps
	Loading bool
}

// Count is shown as a badge next to the title when non-zero.
func (p AccessLogProps) Count() int { return len(p.Entries) }

// PersonsTitle is the headline of an access log row.
func PersonsTitle(count int) string {
	if count > 1 {
		return fmt.Sprintf("%d persons detected", count)
	}
	return "Person detected"
}

func AccessLog(st service.AccessLogState, expandedID string) AccessLogProps {
	p := AccessLogProps{Loading: st.Loading, Entries: make([]AccessLogEntryProps, 0, len(st.Entries))}
	for _, e := range st.Entries {
		row := AccessLogEntryProps{
			ID:        e.ID,
			Title:     PersonsTitle(e.Count),
			Timestamp: e.Timestamp,
			Labels:    e.Labels,
			Multiple:  e.Count > 1,
			Expanded:  expandedID != "" && e.ID == expandedID,
		}
		if row.Expanded {
			row.ImageURL = client.AccessLogImagePath(e.ID)
		}
		p.Entries = append(p.Entries, row)
	}
	return p
}

// Page is the whole dashboard.
type Page struct {
	Temperature SensorCardProps
	Humidity    SensorCardProps
	Camera      CameraFeedProps
	Controls    StreamControlsProps
	AccessLog   AccessLogProps
	Status      StatusBarProps
}

// BuildPage derives every component's props from the dashboard state.
func BuildPage(st service.DashboardState, expandedID string) Page {
	r := st.Reading.Reading
	return Page{
		Temperature: TemperatureCard(r),
		Humidity:    HumidityCard(r),
		Camera:      CameraFeedProps{StreamURL: st.Stream.URL, Playing: st.Stream.Playing},
		Controls: StreamControlsProps{
			Playing:  st.Stream.Playing,
			Faces:    st.Detection.Status.Faces,
			Objects:  st.Detection.Status.Objects,
			Toggling: st.Detection.Toggling,

			FeedURL:     client.VideoFeedPath,
			SnapshotURL: client.SnapshotPath(now()),
		},
		AccessLog: AccessLog(st.AccessLogs, expandedID),
		Status:    StatusBar(st.Reading),
	}
}
