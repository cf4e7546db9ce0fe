package service

import (
	"sensor_node/internal/logger"
	"sensor_node/internal/models"
)

// Zone is the alarm band the temperature is currently considered to be in.
type Zone int

const (
	ZoneNormal Zone = iota
	ZoneWarnHi
	ZoneCritHi
	ZoneWarnLo
	ZoneCritLo
)

func (z Zone) String() string {
	switch z {
	case ZoneNormal:
		return "NORMAL"
	case ZoneWarnHi:
		return "WARN_HI"
	case ZoneCritHi:
		return "CRIT_HI"
	case ZoneWarnLo:
		return "WARN_LO"
	case ZoneCritLo:
		return "CRIT_LO"
	default:
		return "UNKNOWN"
	}
}

func (z Zone) severity() int {
	switch z {
	case ZoneWarnHi, ZoneWarnLo:
		return 1
	case ZoneCritHi, ZoneCritLo:
		return 2
	default:
		return 0
	}
}

func (z Zone) high() bool { return z == ZoneWarnHi || z == ZoneCritHi }

var zoneEvents = map[Zone]models.EventCode{
	ZoneWarnHi: models.EventHiWarn,
	ZoneCritHi: models.EventHiAlarm,
	ZoneWarnLo: models.EventLoWarn,
	ZoneCritLo: models.EventLoAlarm,
}

// EventAppender receives the event code of every alarm transition.
type EventAppender interface {
	Append(code models.EventCode)
}

// AlarmSender forwards alarm transitions upstream. It must not block.
type AlarmSender interface {
	Send(code models.EventCode, reading int)
}

// HysteresisEvaluator tracks the alarm zone across readings. Entering a more
// severe zone logs an event and raises an alarm. A zone is left silently,
// and only once the reading has moved deadband degrees past its threshold.
type HysteresisEvaluator struct {
	zone     Zone
	deadband int
	events   EventAppender
	alarms   AlarmSender
	log      *logger.Logger
}

func NewHysteresisEvaluator(deadband int, events EventAppender, alarms AlarmSender, log *logger.Logger) *HysteresisEvaluator {
	if deadband < 0 {
		deadband = 0
	}
	return &HysteresisEvaluator{
		deadband: deadband,
		events:   events,
		alarms:   alarms,
		log:      logger.OrNop(log),
	}
}

func (e *HysteresisEvaluator) Zone() Zone { return e.zone }

// Evaluate feeds one reading through the state machine.
func (e *HysteresisEvaluator) Evaluate(reading int, t models.Thresholds) {
	next := classify(reading, t)
	cur := e.zone

	switch {
	case next == cur:
		return
	case next.severity() > cur.severity(),
		next != ZoneNormal && cur != ZoneNormal && next.high() != cur.high():
		e.raise(next, reading)
	case e.holds(cur, reading, t):
		return
	default:
		e.log.Infow("alarm_zone_left", "from", cur.String(), "to", next.String(), "reading", reading)
		e.zone = next
	}
}

func (e *HysteresisEvaluator) raise(z Zone, reading int) {
	e.log.Infow("alarm_zone_entered", "from", e.zone.String(), "to", z.String(), "reading", reading)
	e.zone = z
	code := zoneEvents[z]
	if e.events != nil {
		e.events.Append(code)
	}
	if e.alarms != nil {
		e.alarms.Send(code, reading)
	}
}

// holds reports whether reading is still inside zone z widened by the deadband.
func (e *HysteresisEvaluator) holds(z Zone, reading int, t models.Thresholds) bool {
	switch z {
	case ZoneCritHi:
		return reading > t.HiAlarm-e.deadband
	case ZoneWarnHi:
		return reading > t.HiWarn-e.deadband
	case ZoneCritLo:
		return reading < t.LoAlarm+e.deadband
	case ZoneWarnLo:
		return reading < t.LoWarn+e.deadband
	default:
		return false
	}
}

func classify(reading int, t models.Thresholds) Zone {
	switch {
	case reading >= t.HiAlarm:
		return ZoneCritHi
	case reading >= t.HiWarn:
		return ZoneWarnHi
	case reading <= t.LoAlarm:
		return ZoneCritLo
	case reading <= t.LoWarn:
		return ZoneWarnLo
	default:
		return ZoneNormal
	}
}
