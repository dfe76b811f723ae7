package service

import (
	"context"
	"sync"
	"time"

	"pimonitor"
)

// fakeBackend is a scriptable Backend. Nil funcs return zero values.
type fakeBackend struct {
	mu sync.Mutex

	readingFn   func(ctx context.Context) (pimonitor.SensorReading, error)
	statusFn    func(ctx context.Context) (pimonitor.DetectionStatus, error)
	toggleFn    func(ctx context.Context, upd pimonitor.DetectionUpdate) (pimonitor.DetectionStatus, error)
	listFn      func(ctx context.Context, limit int) ([]pimonitor.AccessLogEntry, error)
	deleteFn    func(ctx context.Context, id string) error
	clearFn     func(ctx context.Context) error
	readingHits int
	listHits    int
	toggles     []pimonitor.DetectionUpdate
	deleted     []string
}

func (f *fakeBackend) FetchReading(ctx context.Context) (pimonitor.SensorReading, error) {
	f.mu.Lock()
	f.readingHits++
	fn := f.readingFn
	f.mu.Unlock()
	if fn == nil {
		return pimonitor.SensorReading{Success: true}, nil
	}
	return fn(ctx)
}

func (f *fakeBackend) FetchDetectionStatus(ctx context.Context) (pimonitor.DetectionStatus, error) {
	if f.statusFn == nil {
		return pimonitor.DetectionStatus{}, nil
	}
	return f.statusFn(ctx)
}

func (f *fakeBackend) ToggleDetection(ctx context.Context, upd pimonitor.DetectionUpdate) (pimonitor.DetectionStatus, error) {
	f.mu.Lock()
	f.toggles = append(f.toggles, upd)
	f.mu.Unlock()
	if f.toggleFn == nil {
		return pimonitor.DetectionStatus{}, nil
	}
	return f.toggleFn(ctx, upd)
}

func (f *fakeBackend) FetchHealth(context.Context) (pimonitor.HealthStatus, error) {
	return pimonitor.HealthStatus{Status: "healthy"}, nil
}

func (f *fakeBackend) ListAccessLogs(ctx context.Context, limit int) ([]pimonitor.AccessLogEntry, error) {
	f.mu.Lock()
	f.listHits++
	fn := f.listFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, limit)
}

func (f *fakeBackend) DeleteAccessLog(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeBackend) ClearAccessLogs(ctx context.Context) error {
	if f.clearFn == nil {
		return nil
	}
	return f.clearFn(ctx)
}

func (f *fakeBackend) readingCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readingHits
}

func (f *fakeBackend) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listHits
}

// fakeActivityRepo records appended events.
type fakeActivityRepo struct {
	mu     sync.Mutex
	events []pimonitor.ActivityEvent

	gotFrom time.Time
	gotTo   time.Time
	gotType string
	calls   int
	err     error
}

func (f *fakeActivityRepo) Append(_ context.Context, e pimonitor.ActivityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeActivityRepo) List(_ context.Context, from, to time.Time, typ string) ([]pimonitor.ActivityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom, f.gotTo, f.gotType = from, to, typ
	return f.events, f.err
}

func (f *fakeActivityRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeReadingRepo struct {
	mu      sync.Mutex
	samples []pimonitor.ReadingSample
	limit   int
}

func (f *fakeReadingRepo) Append(_ context.Context, s pimonitor.ReadingSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeReadingRepo) List(_ context.Context, _, _ time.Time, limit int) ([]pimonitor.ReadingSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	return f.samples, nil
}

func (f *fakeReadingRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples)
}

type fakeSnapshotRepo struct {
	mu    sync.Mutex
	saved []pimonitor.Snapshot
	load  pimonitor.Snapshot
}

func (f *fakeSnapshotRepo) Save(_ context.Context, s pimonitor.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeSnapshotRepo) Load(context.Context) (pimonitor.Snapshot, error) {
	return f.load, nil
}

func (f *fakeSnapshotRepo) last() (pimonitor.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return pimonitor.Snapshot{}, false
	}
	return f.saved[len(f.saved)-1], true
}

// eventually polls cond until it holds or the deadline passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
