// Package delay provides countdown timers identified by small integer ids.
// Timers are polled; nothing fires asynchronously.
package delay

import "time"

// Timer ids used by the controller. Each id has one owner that reacts to its expiry.
const (
	LEDTimer    = 0
	SampleTimer = 1
)

type timer struct {
	deadline time.Time
	armed    bool
}

// Service holds the set of timers. It is not safe for concurrent use; the
// scheduler loop is its only caller.
type Service struct {
	now    func() time.Time
	timers map[int]*timer
}

// New returns a timer service reading time from now. A nil now uses time.Now.
func New(now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{now: now, timers: make(map[int]*timer)}
}

// Arm (re)starts timer id so it expires after d. Re-arming an armed timer
// replaces its deadline.
func (s *Service) Arm(id int, d time.Duration) {
	t, ok := s.timers[id]
	if !ok {
		t = &timer{}
		s.timers[id] = t
	}
	t.deadline = s.now().Add(d)
	t.armed = true
}

// HasExpired reports whether timer id has reached its deadline. It returns
// true exactly once per Arm; afterwards it reports false until re-armed.
func (s *Service) HasExpired(id int) bool {
	t, ok := s.timers[id]
	if !ok || !t.armed {
		return false
	}
	if s.now().Before(t.deadline) {
		return false
	}
	t.armed = false
	return true
}

// Armed reports whether timer id is counting down.
func (s *Service) Armed(id int) bool {
	t, ok := s.timers[id]
	return ok && t.armed
}
