// Package led animates the status indicator with a blink pattern.
package led

import (
	"fmt"
	"os"
	"time"

	"sensor_node/internal/delay"
	"sensor_node/internal/logger"
)

// Pattern timing: '.' is a short flash, '-' a long one, ' ' a pause.
const (
	shortOn = 250 * time.Millisecond
	longOn  = 750 * time.Millisecond
	gap     = 250 * time.Millisecond
	pause   = 1000 * time.Millisecond
)

// DefaultPattern blinks "OK".
const DefaultPattern = "--- -.-   "

// Timers is the part of the delay service the blinker uses.
type Timers interface {
	Arm(id int, d time.Duration)
	HasExpired(id int) bool
}

// Output drives the physical indicator.
type Output interface {
	Set(on bool)
}

// Blinker steps through a pattern, one phase per expiry of delay.LEDTimer.
type Blinker struct {
	timers  Timers
	out     Output
	pattern string
	pos     int
	on      bool
}

// New returns a blinker that starts the pattern on its first Update.
func New(timers Timers, out Output, pattern string) *Blinker {
	b := &Blinker{timers: timers, out: out, pattern: pattern, pos: -1}
	out.Set(false)
	if pattern != "" {
		timers.Arm(delay.LEDTimer, 0)
	}
	return b
}

// Update advances the animation if the current phase is over.
func (b *Blinker) Update() {
	if b.pattern == "" || !b.timers.HasExpired(delay.LEDTimer) {
		return
	}
	if b.on {
		b.set(false)
		b.timers.Arm(delay.LEDTimer, gap)
		return
	}

	b.pos = (b.pos + 1) % len(b.pattern)
	switch b.pattern[b.pos] {
	case '.':
		b.set(true)
		b.timers.Arm(delay.LEDTimer, shortOn)
	case '-':
		b.set(true)
		b.timers.Arm(delay.LEDTimer, longOn)
	default:
		b.timers.Arm(delay.LEDTimer, pause)
	}
}

// Lit reports whether the indicator is currently on.
func (b *Blinker) Lit() bool { return b.on }

func (b *Blinker) set(on bool) {
	b.on = on
	b.out.Set(on)
}

// LogOutput reports indicator changes at debug level.
type LogOutput struct {
	log *logger.Logger
}

func NewLogOutput(log *logger.Logger) *LogOutput {
	return &LogOutput{log: logger.OrNop(log)}
}

func (o *LogOutput) Set(on bool) {
	o.log.Debugw("led", "on", on)
}

// FileOutput writes "1"/"0" to a sysfs brightness file such as
// /sys/class/leds/<name>/brightness.
type FileOutput struct {
	path string
	log  *logger.Logger
}

func NewFileOutput(path string, log *logger.Logger) (*FileOutput, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("led brightness file: %w", err)
	}
	return &FileOutput{path: path, log: logger.OrNop(log)}, nil
}

func (o *FileOutput) Set(on bool) {
	v := "0"
	if on {
		v = "1"
	}
	if err := os.WriteFile(o.path, []byte(v), 0o644); err != nil {
		o.log.Errorw("led_write_failed", "path", o.path, "err", err)
	}
}
