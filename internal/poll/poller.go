package poll

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RefreshFunc re-issues the reads behind the polled view. Errors are the
// view's to surface; the poller keeps ticking regardless.
type RefreshFunc func(ctx context.Context)

// Poller keeps a view fresh without a push mechanism: while started, it runs
// the refresh on a fixed interval (plus jitter) and whenever the view
// regains focus. A poller owns at most one timer; Start while running is a
// no-op and Stop cancels the timer before returning. Refreshes run on a
// single goroutine, so they never overlap.
type Poller struct {
	interval time.Duration
	jitter   time.Duration
	refresh  RefreshFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	focus  chan struct{}
}

// New creates a stopped poller.
func New(interval, jitter time.Duration, refresh RefreshFunc) *Poller {
	return &Poller{
		interval: interval,
		jitter:   jitter,
		refresh:  refresh,
	}
}

// Start begins polling until Stop is called. Starting a running poller does
// nothing; there is never more than one live timer.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.focus = make(chan struct{}, 1)
	go p.loop(ctx, p.focus, p.done)
}

// Stop halts polling and waits for any in-progress refresh to finish.
// Stopping a stopped poller does nothing.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.focus = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Focus requests an immediate refresh, used when the view regains focus.
// No-op while stopped; coalesces if a focus refresh is already queued.
func (p *Poller) Focus() {
	p.mu.Lock()
	focus := p.focus
	p.mu.Unlock()
	if focus == nil {
		return
	}
	select {
	case focus <- struct{}{}:
	default:
	}
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, focus chan struct{}, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(p.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-focus:
			p.refresh(ctx)
		case <-timer.C:
			p.refresh(ctx)
			timer.Reset(p.nextInterval())
		}
	}
}

func (p *Poller) nextInterval() time.Duration {
	if p.jitter <= 0 {
		return p.interval
	}
	return p.interval + time.Duration(rand.Int63n(int64(p.jitter)))
}
