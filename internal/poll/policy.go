package poll

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reference intervals. Foreground clients poll aggressively; backgrounded
// ones back off to a fraction of the traffic.
const (
	DefaultForegroundEvery = 60 * time.Second
	DefaultBackgroundEvery = 300 * time.Second
)

// Policy schedules fetches around two visibility states.
//
// In the foreground the fetch fires every ForegroundEvery. In the background
// it fires every BackgroundEvery, and even then a tick is skipped while the
// last successful fetch is younger than BackgroundEvery, so a client that
// flips between states rapidly does not multiply traffic. Returning to the
// foreground triggers an immediate fetch: the user is looking at stale data
// right now.
//
// The policy owns exactly one timer at any moment. Every state change stops
// the active timer before arming the next one, so a superseded interval can
// never fire.
type Policy struct {
	// ForegroundEvery is the polling interval while visible.
	ForegroundEvery time.Duration
	// BackgroundEvery is the polling interval while hidden, and also the
	// freshness horizon for the background skip.
	BackgroundEvery time.Duration
	// Clock supplies time; swap for a fake in tests.
	Clock Clock
	// Fetch performs one refresh. The policy only records a fetch as done
	// when Fetch returns nil, so a failed attempt is retried on the next tick
	// rather than silently counted.
	Fetch func(ctx context.Context) error

	visibleCh chan bool
	forceCh   chan struct{}

	// Loop-local state; touched only inside Run.
	visible   bool
	lastFetch time.Time
}

// New constructs a Policy with the reference intervals. The policy starts in
// the foreground state; call SetVisible(false) once the client reports being
// hidden.
func New(clock Clock, fetch func(ctx context.Context) error) *Policy {
	if clock == nil {
		clock = NewClock()
	}
	return &Policy{
		ForegroundEvery: DefaultForegroundEvery,
		BackgroundEvery: DefaultBackgroundEvery,
		Clock:           clock,
		Fetch:           fetch,
		visibleCh:       make(chan bool),
		forceCh:         make(chan struct{}),
		visible:         true,
	}
}

// SetVisible tells the policy the client became visible (true) or hidden
// (false). Blocks until the running loop consumes the change; Run must be
// active.
func (p *Policy) SetVisible(v bool) { p.visibleCh <- v }

// ForceRefresh requests an immediate fetch regardless of freshness. Blocks
// until the running loop consumes the request; Run must be active.
func (p *Policy) ForceRefresh() { p.forceCh <- struct{}{} }

// Run drives the policy until ctx is cancelled. It performs one initial
// fetch so the client never starts on an empty cache, then loops on a single
// timer.
func (p *Policy) Run(ctx context.Context) {
	p.doFetch(ctx)

	for {
		timer := p.Clock.NewTimer(p.interval())

	armed:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return

			case v := <-p.visibleCh:
				timer.Stop()
				wasVisible := p.visible
				p.visible = v
				if v && !wasVisible {
					// Catch up immediately on return to the foreground.
					p.doFetch(ctx)
				}
				break armed

			case <-p.forceCh:
				// A forced fetch does not disturb the schedule; the timer
				// keeps running and the next tick applies the recency skip.
				p.doFetch(ctx)

			case <-timer.C():
				if !p.visible && p.Clock.Now().Sub(p.lastFetch) < p.BackgroundEvery {
					// Fresh enough; skip this background tick.
					break armed
				}
				p.doFetch(ctx)
				break armed
			}
		}
	}
}

// interval returns the timer duration for the current visibility state.
func (p *Policy) interval() time.Duration {
	if p.visible {
		return p.ForegroundEvery
	}
	return p.BackgroundEvery
}

// doFetch runs the fetch callback and advances lastFetch on success only.
func (p *Policy) doFetch(ctx context.Context) {
	if p.Fetch == nil {
		return
	}
	if err := p.Fetch(ctx); err != nil {
		log.Warn().Err(err).Msg("poll fetch failed")
		return
	}
	p.lastFetch = p.Clock.Now()
}
