// Package poller runs a fetch on mount, on a fixed interval and on demand,
// and applies only the newest issued result.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Refresh after Stop.
var ErrStopped = errors.New("poller stopped")

// Options configure a Poller.
type Options[T any] struct {
	// Interval between timer fetches. Zero fetches once on Start and never ticks.
	Interval time.Duration
	// Fetch performs one round trip.
	Fetch func(ctx context.Context) (T, error)
	// Apply receives every result that is newer than the last applied one.
	// It runs under the poller lock and must not call back into the poller.
	Apply func(v T, err error)
	// OnLoading reports transitions of the in-flight flag. Optional.
	OnLoading func(loading bool)
}

// Poller is one polling cell: idle -> loading -> (success|failure) -> idle.
type Poller[T any] struct {
	opts Options[T]

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopped  bool
	issued   uint64
	applied  uint64
	inflight int

	tickStop chan struct{}
	tickDone chan struct{}
	// tickGen changes whenever the timer starts or stops; a tick fetch
	// carrying an older generation is skipped.
	tickGen uint64
}

// New returns an unstarted poller.
func New[T any](opts Options[T]) *Poller[T] {
	return &Poller[T]{opts: opts}
}

// Start mounts the poller: an immediate background fetch, then the recurring timer.
// Calling Start twice is a no-op.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.startTimerLocked()
	ctx = p.ctx
	p.mu.Unlock()

	go func() { _ = p.Refresh(ctx) }()
}

// Suspend cancels the recurring timer. No tick fetch starts after it returns.
func (p *Poller[T]) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
}

// Resume fires an immediate background fetch and restarts the timer.
// It does nothing before Start, after Stop, or while the timer runs.
func (p *Poller[T]) Resume() {
	p.mu.Lock()
	if !p.started || p.stopped || p.tickStop != nil {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.startTimerLocked()
	p.mu.Unlock()

	go func() { _ = p.Refresh(ctx) }()
}

// Running reports whether the recurring timer is active.
func (p *Poller[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tickStop != nil
}

// Loading reports whether any fetch is in flight.
func (p *Poller[T]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight > 0
}

// Invalidate discards the results of every fetch already in flight.
func (p *Poller[T]) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied = p.issued
}

// Stop unmounts the poller: the timer stops, in-flight fetches are cancelled
// and their late results are dropped.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.stopTimerLocked()
	if p.cancel != nil {
		p.cancel()
	}
}

// Refresh runs one fetch synchronously. The result is applied only if no
// later-issued fetch has been applied meanwhile. Returns the fetch error.
func (p *Poller[T]) Refresh(ctx context.Context) error {
	return p.fetch(ctx, 0)
}

// tick is the timer's fetch. It is dropped when the timer of generation gen
// has been stopped since the tick fired.
func (p *Poller[T]) tick(ctx context.Context, gen uint64) {
	_ = p.fetch(ctx, gen)
}

// fetch with gen 0 always runs.
func (p *Poller[T]) fetch(ctx context.Context, gen uint64) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	if gen != 0 && (gen != p.tickGen || p.tickStop == nil) {
		p.mu.Unlock()
		return nil
	}
	p.issued++
	seq := p.issued
	p.inflight++
	if p.inflight == 1 && p.opts.OnLoading != nil {
		p.opts.OnLoading(true)
	}
	p.mu.Unlock()

	v, err := p.opts.Fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	if seq > p.applied && !p.stopped {
		p.applied = seq
		if p.opts.Apply != nil {
			p.opts.Apply(v, err)
		}
	}
	if p.inflight == 0 && p.opts.OnLoading != nil {
		p.opts.OnLoading(false)
	}
	return err
}

func (p *Poller[T]) startTimerLocked() {
	if p.opts.Interval <= 0 || p.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	p.tickStop, p.tickDone = stop, done
	p.tickGen++
	go p.tickLoop(p.ctx, p.opts.Interval, p.tickGen, stop, done)
}

func (p *Poller[T]) stopTimerLocked() {
	if p.tickStop == nil {
		return
	}
	close(p.tickStop)
	<-p.tickDone
	p.tickStop, p.tickDone = nil, nil
	p.tickGen++
}

// tickLoop never takes p.mu, so stopTimerLocked can wait on it while holding the lock.
func (p *Poller[T]) tickLoop(ctx context.Context, interval time.Duration, gen uint64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			go p.tick(ctx, gen)
		}
	}
}
