package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CountdownMode selects how the walk indicator is rendered.
type CountdownMode string

const (
	CountDown CountdownMode = "count_down"
	CountUp   CountdownMode = "count_up"
)

// Settings is an immutable snapshot of the care configuration. Core
// computations receive it as an explicit parameter and never mutate it;
// the Store owns loading and refreshing.
type Settings struct {
	MorningWalkTime   string        `json:"morning_walk_time"` // "HH:MM"
	WalkIntervalHours float64       `json:"walk_interval_hours"`
	SleepStartHour    float64       `json:"sleep_start_hour"` // 0-23.5, half-hour steps
	SleepEndHour      float64       `json:"sleep_end_hour"`
	CountdownMode     CountdownMode `json:"countdown_mode"`
	Birthday          *time.Time    `json:"birthday,omitempty"`
}

// MorningWalk returns the morning walk time as hour and minute.
// Falls back to 07:00 if the stored string is malformed.
func (s Settings) MorningWalk() (hour, minute int) {
	parts := strings.SplitN(s.MorningWalkTime, ":", 2)
	if len(parts) != 2 {
		return 7, 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 7, 0
	}
	return h, m
}

// IsSleepHour reports whether the fractional hour falls in the configured
// sleep window. The window may wrap past midnight (e.g. 22:00-06:30).
func (s Settings) IsSleepHour(hour float64) bool {
	if s.SleepStartHour == s.SleepEndHour {
		return false
	}
	if s.SleepStartHour < s.SleepEndHour {
		return hour >= s.SleepStartHour && hour < s.SleepEndHour
	}
	return hour >= s.SleepStartHour || hour < s.SleepEndHour
}

// Validate checks the snapshot for obviously broken values.
func (s Settings) Validate() error {
	if s.WalkIntervalHours <= 0 {
		return fmt.Errorf("walk_interval_hours must be positive, got %v", s.WalkIntervalHours)
	}
	if s.SleepStartHour < 0 || s.SleepStartHour >= 24 {
		return fmt.Errorf("sleep_start_hour out of range: %v", s.SleepStartHour)
	}
	if s.SleepEndHour < 0 || s.SleepEndHour >= 24 {
		return fmt.Errorf("sleep_end_hour out of range: %v", s.SleepEndHour)
	}
	if s.CountdownMode != CountDown && s.CountdownMode != CountUp {
		return fmt.Errorf("unknown countdown_mode: %s", s.CountdownMode)
	}
	return nil
}
