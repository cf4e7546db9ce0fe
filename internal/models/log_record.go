package models

import "time"

// EventCode identifies a log/alarm event. Values are part of the wire format
// of the GET response and of alarm frames, so they must never be renumbered.
type EventCode uint8

const (
	EventTimeSet EventCode = 1 // clock about to be synchronized
	EventNewTime EventCode = 2 // clock synchronized
	EventStartup EventCode = 3
	EventHiAlarm EventCode = 4
	EventHiWarn  EventCode = 5
	EventLoAlarm EventCode = 6
	EventLoWarn  EventCode = 7
)

var eventNames = map[EventCode]string{
	EventTimeSet: "TIMESET",
	EventNewTime: "NEWTIME",
	EventStartup: "STARTUP",
	EventHiAlarm: "HI_ALARM",
	EventHiWarn:  "HI_WARN",
	EventLoAlarm: "LO_ALARM",
	EventLoWarn:  "LO_WARN",
}

// String returns the symbolic name, or "UNKNOWN" for codes not in the table.
func (c EventCode) String() string {
	if n, ok := eventNames[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// LogRecord is a single entry of the event history.
type LogRecord struct {
	ID        string    `json:"-"` // row id, assigned on first write-back
	Timestamp time.Time `json:"timestamp"`
	Event     EventCode `json:"event"`
}
