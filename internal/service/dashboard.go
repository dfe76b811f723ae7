package service

import (
	"context"
	"sync"
	"time"

	"pimonitor"
	"pimonitor/internal/bus"
	"pimonitor/internal/logger"
	"pimonitor/internal/repository"
)

// DashboardConfig tunes the polling cells.
type DashboardConfig struct {
	ReadingInterval    time.Duration
	AccessLogInterval  time.Duration
	AccessLogLimit     int
	RespectManualPause bool
	SuspendWhenIdle    bool
}

// DashboardState is everything the page renders.
type DashboardState struct {
	Connection pimonitor.ConnectionState `json:"connection"`
	Reading    ReadingState              `json:"reading"`
	Detection  DetectionState            `json:"detection"`
	Stream     StreamState               `json:"stream"`
	AccessLogs AccessLogState            `json:"access_logs"`
	Visible    bool                      `json:"visible"`
	Viewers    int                       `json:"viewers"`
}

// Dashboard owns every cell, publishes their changes on the bus and reacts to
// page visibility.
type Dashboard struct {
	backend  Backend
	snapshot repository.SnapshotRepo
	activity repository.ActivityRepo
	bus      *bus.Bus
	log      *logger.Logger

	reading    *ReadingService
	detection  *DetectionService
	accessLogs *AccessLogService
	stream     *StreamService
	visibility *Visibility

	mu      sync.Mutex
	visible bool
}

func NewDashboard(backend Backend, repos *repository.Repository, b *bus.Bus, cfg DashboardConfig, log *logger.Logger) *Dashboard {
	if log == nil {
		log = logger.Nop()
	}
	if repos == nil {
		repos = &repository.Repository{}
	}
	if b == nil {
		b = bus.New(log)
	}
	log = log.Named("dashboard")

	d := &Dashboard{
		backend:    backend,
		snapshot:   repos.Snapshot,
		activity:   repos.Activity,
		bus:        b,
		log:        log,
		reading:    NewReadingService(backend, cfg.ReadingInterval, repos.Readings, repos.Activity, log),
		detection:  NewDetectionService(backend, repos.Activity, log),
		accessLogs: NewAccessLogService(backend, cfg.AccessLogInterval, cfg.AccessLogLimit, repos.Activity, log),
		stream:     NewStreamService(cfg.RespectManualPause),
	}
	d.visibility = NewVisibility(cfg.SuspendWhenIdle, d.SetVisible)
	d.visible = d.visibility.Visible()
	if !d.visible {
		d.stream.SetVisible(false)
	}

	d.reading.OnChange(func(st ReadingState, good bool) {
		d.Announce(bus.EventReading, st)
		if good {
			d.saveSnapshot()
		}
	})
	d.detection.OnChange(func(st DetectionState, confirmed bool) {
		d.Announce(bus.EventDetection, st)
		if confirmed {
			d.saveSnapshot()
		}
	})
	d.accessLogs.OnChange(func(st AccessLogState) {
		d.Announce(bus.EventAccessLogs, st)
	})
	return d
}

// Start seeds the cells from the last-known snapshot and mounts them. Mounting
// always fetches once; an idle dashboard then keeps its timers suspended until
// a viewer joins.
func (d *Dashboard) Start(ctx context.Context) {
	if d.snapshot != nil {
		loadCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		snap, err := d.snapshot.Load(loadCtx)
		cancel()
		if err != nil {
			d.log.Warnw("snapshot_load_failed", "err", err)
		} else {
			d.reading.Seed(snap.Reading)
			d.detection.Seed(snap.Detection)
		}
	}

	d.mu.Lock()
	d.detection.Start(ctx)
	d.reading.Start(ctx)
	d.accessLogs.Start(ctx)
	visible := d.visible
	if !visible {
		d.reading.Suspend()
		d.accessLogs.Suspend()
	}
	d.mu.Unlock()
	d.log.Infow("dashboard_started", "visible", visible)
}

// Stop unmounts every cell. Late results are discarded.
func (d *Dashboard) Stop() {
	d.reading.Stop()
	d.detection.Stop()
	d.accessLogs.Stop()
	d.log.Infow("dashboard_stopped")
}

// SetVisible applies a page visibility transition: hidden suspends the
// periodic pollers and pauses the stream; shown refetches immediately,
// restarts the timers and resumes the stream.
func (d *Dashboard) SetVisible(visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.visible == visible {
		return
	}
	d.visible = visible

	if visible {
		d.reading.Resume()
		d.accessLogs.Resume()
	} else {
		d.reading.Suspend()
		d.accessLogs.Suspend()
	}
	st := d.stream.SetVisible(visible)

	typ, desc := pimonitor.ActivityPollResumed, "Page shown, polling resumed"
	if !visible {
		typ, desc = pimonitor.ActivityPollSuspended, "Page hidden, polling suspended"
	}
	d.log.Infow("visibility_changed", "visible", visible)
	recordActivity(d.activity, d.log, typ, desc, nil)

	d.Announce(bus.EventStream, st)
	d.Announce(bus.EventVisibility, visible)
}

func (d *Dashboard) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

func (d *Dashboard) Snapshot() DashboardState {
	rs := d.reading.State()
	return DashboardState{
		Connection: rs.Connection(),
		Reading:    rs,
		Detection:  d.detection.State(),
		Stream:     d.stream.State(),
		AccessLogs: d.accessLogs.State(),
		Visible:    d.Visible(),
		Viewers:    d.visibility.Viewers(),
	}
}

func (d *Dashboard) Subscribe(buffer int) (<-chan bus.Event, func()) {
	return d.bus.Subscribe(buffer)
}

// Announce publishes a change that does not originate in a cell, such as
// view-local expansion.
func (d *Dashboard) Announce(t bus.EventType, data any) {
	d.bus.Publish(bus.Event{Type: t, Data: data})
}

func (d *Dashboard) RefreshReading(ctx context.Context) (ReadingState, error) {
	return d.reading.Refresh(ctx)
}

func (d *Dashboard) ToggleDetection(ctx context.Context, key pimonitor.DetectionKey) (pimonitor.DetectionStatus, error) {
	return d.detection.Toggle(ctx, key)
}

func (d *Dashboard) ToggleStream() StreamState {
	st := d.stream.Toggle()
	d.Announce(bus.EventStream, st)
	return st
}

func (d *Dashboard) RefreshAccessLogs(ctx context.Context) ([]pimonitor.AccessLogEntry, error) {
	return d.accessLogs.Refresh(ctx)
}

func (d *Dashboard) DeleteAccessLog(ctx context.Context, id string) error {
	return d.accessLogs.Remove(ctx, id)
}

func (d *Dashboard) ClearAccessLogs(ctx context.Context) error {
	return d.accessLogs.ClearAll(ctx)
}

func (d *Dashboard) JoinViewer() string { return d.visibility.Join() }

func (d *Dashboard) SetViewerVisible(id string, visible bool) { d.visibility.Set(id, visible) }

func (d *Dashboard) LeaveViewer(id string) { d.visibility.Leave(id) }

func (d *Dashboard) BackendHealth(ctx context.Context) (pimonitor.HealthStatus, error) {
	return d.backend.FetchHealth(ctx)
}

func (d *Dashboard) saveSnapshot() {
	if d.snapshot == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	err := d.snapshot.Save(ctx, pimonitor.Snapshot{
		Reading:   d.reading.State().Reading,
		Detection: d.detection.State().Status,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		d.log.Warnw("snapshot_save_failed", "err", err)
	}
}
