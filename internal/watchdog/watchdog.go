// Package watchdog is a software stand-in for a hardware watchdog timer.
// If Reset is not called within the timeout, the expiry handler runs once.
package watchdog

import (
	"sync"
	"time"
)

// DefaultTimeout matches a 2 s hardware watchdog.
const DefaultTimeout = 2 * time.Second

type Watchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	stopped  bool
	onExpire func()
}

// New arms the watchdog. onExpire runs on its own goroutine.
func New(timeout time.Duration, onExpire func()) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	w := &Watchdog{timeout: timeout, onExpire: onExpire}
	w.timer = time.AfterFunc(timeout, w.expire)
	return w
}

// Reset restarts the countdown. It is a no-op after Stop.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.timer.Reset(w.timeout)
}

// Stop disarms the watchdog for a clean shutdown.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.timer.Stop()
}

func (w *Watchdog) expire() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped || w.onExpire == nil {
		return
	}
	w.onExpire()
}
