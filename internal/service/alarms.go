package service

import (
	"sync"

	"sensor_node/internal/models"
)

const DefaultInboxCapacity = 256

// AlarmInbox keeps the most recent alarm frames received by the master
// controller. It is safe for concurrent use.
type AlarmInbox struct {
	mu       sync.Mutex
	capacity int
	frames   []models.AlarmFrame
}

func NewAlarmInbox(capacity int) *AlarmInbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &AlarmInbox{capacity: capacity}
}

// Record stores f, evicting the oldest frame when full.
func (b *AlarmInbox) Record(f models.AlarmFrame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == b.capacity {
		b.frames = append(b.frames[:0], b.frames[1:]...)
	}
	b.frames = append(b.frames, f)
}

// List returns frames in arrival order, optionally only those from serial.
func (b *AlarmInbox) List(serial string) []models.AlarmFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.AlarmFrame, 0, len(b.frames))
	for _, f := range b.frames {
		if serial == "" || f.Serial == serial {
			out = append(out, f)
		}
	}
	return out
}
