// Package poll implements the adaptive synchronization policy that decides
// when a client-side agent refreshes its view of the backend. The policy is
// transport-agnostic: it fires an injected fetch callback and leaves the
// actual HTTP round trip to the caller.
package poll

import "time"

// Clock abstracts time so the policy can be driven deterministically in
// tests. The real implementation delegates to the time package.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time

	// NewTimer returns a timer that fires once after d.
	NewTimer(d time.Duration) Timer
}

// Timer is the single-shot timer shape the policy consumes.
type Timer interface {
	// C is the channel the timer fires on.
	C() <-chan time.Time

	// Stop prevents the timer from firing. It reports whether the stop
	// happened before the timer fired.
	Stop() bool
}

// realClock is the production Clock backed by the time package.
type realClock struct{}

// NewClock returns the production Clock.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct{ t *time.Timer }

func (rt realTimer) C() <-chan time.Time { return rt.t.C }
func (rt realTimer) Stop() bool          { return rt.t.Stop() }
