// Package alarm delivers alarm transitions to the master controller.
package alarm

import (
	"sensor_node/internal/logger"
	"sensor_node/internal/models"
)

// LogSink reports alarms in the local log only. It is used when no master
// controller is configured.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: logger.OrNop(log)}
}

func (s *LogSink) Send(code models.EventCode, reading int) {
	s.log.Warnw("alarm_raised", "event", code.String(), "code", int(code), "reading", reading)
}
