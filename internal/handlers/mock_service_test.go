package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"pimonitor"
	"pimonitor/internal/bus"
	"pimonitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockDashboard stands in for *service.Dashboard. Subscribe/Announce use a real bus.
type mockDashboard struct {
	mu sync.Mutex

	state     service.DashboardState
	readErr   error
	toggleErr error
	deleteErr error
	clearErr  error
	listErr   error
	health    pimonitor.HealthStatus
	healthErr error

	refreshCalls int
	toggledKeys  []pimonitor.DetectionKey
	deletedIDs   []string
	clearCalls   int
	visibility   map[string]bool
	left         []string
	nextViewer   int

	bus *bus.Bus
}

func newMockDashboard() *mockDashboard {
	return &mockDashboard{bus: bus.New(nil), visibility: map[string]bool{}}
}

func (m *mockDashboard) Snapshot() service.DashboardState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockDashboard) setState(st service.DashboardState) {
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
}

func (m *mockDashboard) Subscribe(buffer int) (<-chan bus.Event, func()) {
	return m.bus.Subscribe(buffer)
}

func (m *mockDashboard) Announce(t bus.EventType, data any) {
	m.bus.Publish(bus.Event{Type: t, Data: data})
}

func (m *mockDashboard) RefreshReading(context.Context) (service.ReadingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	return m.state.Reading, m.readErr
}

func (m *mockDashboard) ToggleDetection(_ context.Context, key pimonitor.DetectionKey) (pimonitor.DetectionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggledKeys = append(m.toggledKeys, key)
	if m.toggleErr != nil {
		return m.state.Detection.Status, m.toggleErr
	}
	if key == pimonitor.DetectionObjects {
		m.state.Detection.Status.Objects = !m.state.Detection.Status.Objects
	} else {
		m.state.Detection.Status.Faces = !m.state.Detection.Status.Faces
	}
	return m.state.Detection.Status, nil
}

func (m *mockDashboard) ToggleStream() service.StreamState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Stream.Playing = !m.state.Stream.Playing
	return m.state.Stream
}

func (m *mockDashboard) RefreshAccessLogs(context.Context) ([]pimonitor.AccessLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.AccessLogs.Entries, m.listErr
}

func (m *mockDashboard) DeleteAccessLog(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockDashboard) ClearAccessLogs(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	return m.clearErr
}

func (m *mockDashboard) JoinViewer() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextViewer++
	id := "viewer-" + strconv.Itoa(m.nextViewer)
	m.visibility[id] = true
	return id
}

func (m *mockDashboard) SetViewerVisible(id string, visible bool) {
	m.mu.Lock()
	m.visibility[id] = visible
	m.mu.Unlock()
}

func (m *mockDashboard) LeaveViewer(id string) {
	m.mu.Lock()
	delete(m.visibility, id)
	m.left = append(m.left, id)
	m.mu.Unlock()
}

func (m *mockDashboard) viewerVisible(id string) (visible, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	visible, ok = m.visibility[id]
	return visible, ok
}

func (m *mockDashboard) leftViewers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.left)
}

func (m *mockDashboard) BackendHealth(context.Context) (pimonitor.HealthStatus, error) {
	return m.health, m.healthErr
}

type mockEventLog struct {
	resp     []pimonitor.ActivityEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]pimonitor.ActivityEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockHistory struct {
	resp       []pimonitor.ReadingSample
	err        error
	lastFilter service.HistoryFilter
}

func (m *mockHistory) ListReadings(_ context.Context, f service.HistoryFilter) ([]pimonitor.ReadingSample, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

// dashboardServices builds a Service whose dashboard-facing parts are all d.
func dashboardServices(d *mockDashboard) *service.Service {
	return &service.Service{
		Monitoring: d,
		Sensor:     d,
		Detection:  d,
		Stream:     d,
		AccessLog:  d,
		Viewers:    d,
		Health:     d,
	}
}

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	h := NewHandler(s, nil, opts...)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
