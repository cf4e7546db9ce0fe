package models

import "fmt"

// Thresholds are the four alarm limits, in whole degrees.
type Thresholds struct {
	HiAlarm int `json:"tcrit_hi"`
	HiWarn  int `json:"twarn_hi"`
	LoAlarm int `json:"tcrit_lo"`
	LoWarn  int `json:"twarn_lo"`
}

// Validate checks the limits are ordered lo-alarm < lo-warn < hi-warn < hi-alarm.
func (t Thresholds) Validate() error {
	if !(t.LoAlarm < t.LoWarn && t.LoWarn < t.HiWarn && t.HiWarn < t.HiAlarm) {
		return fmt.Errorf("thresholds out of order: lo_alarm=%d lo_warn=%d hi_warn=%d hi_alarm=%d",
			t.LoAlarm, t.LoWarn, t.HiWarn, t.HiAlarm)
	}
	return nil
}
