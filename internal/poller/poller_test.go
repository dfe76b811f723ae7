package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recorder collects applied values for assertions.
type recorder struct {
	mu      sync.Mutex
	values  []int
	errs    []error
	loading []bool
}

func (r *recorder) apply(v int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
	r.errs = append(r.errs, err)
}

func (r *recorder) onLoading(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = append(r.loading, b)
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestStart_ImmediateFetchThenTicks(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}
	p := New(Options[int]{
		Interval: 20 * time.Millisecond,
		Fetch: func(ctx context.Context) (int, error) {
			return int(calls.Add(1)), nil
		},
		Apply: rec.apply,
	})
	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, time.Second, func() bool { return calls.Load() >= 1 })
	if !p.Running() {
		t.Fatalf("timer should run after Start")
	}
	waitFor(t, time.Second, func() bool { return calls.Load() >= 3 })
}

func TestZeroInterval_FetchesOnceWithoutTimer(t *testing.T) {
	var calls atomic.Int32
	p := New(Options[int]{
		Fetch: func(ctx context.Context) (int, error) { return int(calls.Add(1)), nil },
	})
	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, time.Second, func() bool { return calls.Load() == 1 })
	if p.Running() {
		t.Fatalf("no timer expected for zero interval")
	}
	time.Sleep(30 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one fetch, got %d", n)
	}
}

func TestSuspendStopsTicks_ResumeFetchesImmediately(t *testing.T) {
	var calls atomic.Int32
	p := New(Options[int]{
		Interval: 15 * time.Millisecond,
		Fetch:    func(ctx context.Context) (int, error) { return int(calls.Add(1)), nil },
	})
	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, time.Second, func() bool { return calls.Load() >= 2 })

	p.Suspend()
	if p.Running() {
		t.Fatalf("timer must be cancelled by Suspend")
	}
	// a fetch issued just before Suspend may still be entering Fetch
	time.Sleep(5 * time.Millisecond)
	frozen := calls.Load()
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != frozen {
		t.Fatalf("fetches while suspended: before=%d after=%d", frozen, got)
	}

	// Resume with a long interval so only the immediate fetch can explain the call.
	p.opts.Interval = time.Hour
	p.Resume()
	waitFor(t, 200*time.Millisecond, func() bool { return calls.Load() == frozen+1 })
	if !p.Running() {
		t.Fatalf("timer should restart on Resume")
	}
}

func TestSequenceGuard_DiscardsStaleResponse(t *testing.T) {
	release := map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})}
	var n atomic.Int32
	rec := &recorder{}
	p := New(Options[int]{
		Fetch: func(ctx context.Context) (int, error) {
			id := int(n.Add(1))
			<-release[id]
			return id, nil
		},
		Apply:     rec.apply,
		OnLoading: rec.onLoading,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); _ = p.Refresh(context.Background()) }()
	waitFor(t, time.Second, func() bool { return n.Load() == 1 })
	wg.Add(1)
	go func() { defer wg.Done(); _ = p.Refresh(context.Background()) }()
	waitFor(t, time.Second, func() bool { return n.Load() == 2 })

	if !p.Loading() {
		t.Fatalf("expected loading while fetches are in flight")
	}

	close(release[2]) // newer completes first
	waitFor(t, time.Second, func() bool { return len(rec.snapshot()) == 1 })
	close(release[1]) // older completes last and must be dropped
	wg.Wait()

	if got := rec.snapshot(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected only the newest result to apply, got %v", got)
	}
	if p.Loading() {
		t.Fatalf("loading should clear when nothing is in flight")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.loading) != 2 || !rec.loading[0] || rec.loading[1] {
		t.Fatalf("loading transitions: %v", rec.loading)
	}
}

func TestInvalidate_DropsInFlightResult(t *testing.T) {
	gate := make(chan struct{})
	rec := &recorder{}
	p := New(Options[int]{
		Fetch: func(ctx context.Context) (int, error) {
			<-gate
			return 7, nil
		},
		Apply: rec.apply,
	})

	done := make(chan error, 1)
	go func() { done <- p.Refresh(context.Background()) }()
	waitFor(t, time.Second, p.Loading)
	p.Invalidate()
	close(gate)
	<-done

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("invalidated result applied: %v", got)
	}
}

func TestStop_CancelsAndRejects(t *testing.T) {
	rec := &recorder{}
	p := New(Options[int]{
		Interval: 10 * time.Millisecond,
		Fetch: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
		Apply: rec.apply,
	})
	p.Start(context.Background())
	waitFor(t, time.Second, p.Loading)

	p.Stop()
	p.Stop() // idempotent
	if p.Running() {
		t.Fatalf("timer should stop")
	}
	waitFor(t, time.Second, func() bool { return !p.Loading() })
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("results after Stop must be dropped, got %v", got)
	}
	if err := p.Refresh(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestRefresh_ReturnsAndAppliesError(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{}
	p := New(Options[int]{
		Fetch: func(ctx context.Context) (int, error) { return 0, boom },
		Apply: rec.apply,
	})
	if err := p.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.errs) != 1 || !errors.Is(rec.errs[0], boom) {
		t.Fatalf("error should be applied: %v", rec.errs)
	}
}

func TestSuspend_NoFetchStartsAfterReturn(t *testing.T) {
	for i := 0; i < 200; i++ {
		var suspended, late atomic.Bool
		// OnLoading(true) runs when a fetch is issued, under the poller lock
		p := New(Options[int]{
			Interval: 200 * time.Microsecond,
			Fetch:    func(ctx context.Context) (int, error) { return 0, nil },
			OnLoading: func(loading bool) {
				if loading && suspended.Load() {
					late.Store(true)
				}
			},
		})
		p.Start(context.Background())
		time.Sleep(time.Millisecond)
		p.Suspend()
		suspended.Store(true)
		time.Sleep(time.Millisecond)
		p.Stop()
		if late.Load() {
			t.Fatalf("iteration %d: a tick fetch was issued after Suspend returned", i)
		}
	}
}

func TestResume_IdempotentWhileRunning(t *testing.T) {
	var calls atomic.Int32
	p := New(Options[int]{
		Interval: time.Hour,
		Fetch:    func(ctx context.Context) (int, error) { return int(calls.Add(1)), nil },
	})
	p.Start(context.Background())
	defer p.Stop()
	waitFor(t, time.Second, func() bool { return calls.Load() == 1 })

	p.Resume()
	p.Resume()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("Resume on a running timer fetched: calls=%d, want 1", got)
	}

	p.Suspend()
	p.Suspend()
	p.Resume()
	waitFor(t, time.Second, func() bool { return calls.Load() == 2 })
}
