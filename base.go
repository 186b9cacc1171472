package eventrt

import (
	"time"
)

// idleTimer wraps time.Timer to make "no timeout" (Infinity) and repeated
// Reset calls on a possibly-already-fired timer easy to get right. It is
// the Runtime actor's embeddable piece of shutdown-timer boilerplate —
// what this module's teacher expressed as a mutate-in-place Base struct
// embedded by every aggregate, this module expresses as one small helper
// embedded by the one place that needs timer bookkeeping.
type idleTimer struct {
	t        *time.Timer
	infinite bool
	ch       chan time.Time
}

// newIdleTimer starts a timer that fires after d, unless d is Infinity,
// in which case it never fires.
func newIdleTimer(d time.Duration) *idleTimer {
	if d == Infinity {
		return &idleTimer{infinite: true, ch: make(chan time.Time)}
	}
	return &idleTimer{t: time.NewTimer(d)}
}

// C returns the channel that fires on idle-shutdown.
func (it *idleTimer) C() <-chan time.Time {
	if it.infinite {
		return it.ch
	}
	return it.t.C
}

// Reset restarts the timer after activity, draining a stale fire if one
// raced the reset.
func (it *idleTimer) Reset(d time.Duration) {
	if it.infinite {
		return
	}
	if !it.t.Stop() {
		select {
		case <-it.t.C:
		default:
		}
	}
	it.t.Reset(d)
}

// Stop releases the timer's resources.
func (it *idleTimer) Stop() {
	if it.infinite {
		return
	}
	it.t.Stop()
}
