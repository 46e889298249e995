package viewport

import (
	"sync"
	"time"
)

// DefaultSettleDelay lets layout stabilise after an image load before the
// first geometry computation.
const DefaultSettleDelay = 100 * time.Millisecond

// Settler runs one deferred recomputation at a time. Scheduling again
// replaces the pending callback, and Dispose cancels it. A callback whose
// timer already fired when Dispose is called may still run, so callbacks
// that touch torn-down state re-check it on their own goroutine.
type Settler struct {
	delay time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	disposed bool
}

// NewSettler creates a settler with the given delay. A non-positive delay
// runs callbacks synchronously.
func NewSettler(delay time.Duration) *Settler {
	return &Settler{delay: delay}
}

// Schedule arranges for fn to run after the settle delay.
func (s *Settler) Schedule(fn func()) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	gen := s.gen

	if s.delay <= 0 {
		s.mu.Unlock()
		fn()
		return
	}

	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		live := !s.disposed && s.gen == gen
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	s.mu.Unlock()
}

// Dispose cancels any pending callback and disables the settler.
func (s *Settler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
