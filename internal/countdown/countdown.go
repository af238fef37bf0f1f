package countdown

import (
	"fmt"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/settings"
)

// Status is the walk indicator shown on the home screen. In count-down
// mode it points at the next due walk; in count-up mode it reports the
// time since the last break.
type Status struct {
	Mode     settings.CountdownMode
	LastWalk time.Time
	NextWalk time.Time     // zero in count-up mode
	Elapsed  time.Duration // since the last break
	Remain   time.Duration // until the next walk, negative when overdue
	Overdue  bool
}

// Next computes the indicator for the given last break and reference
// instant. The next walk is the last break plus the configured interval;
// when that lands in the sleep window it is pushed to the next morning
// walk time instead.
func Next(s settings.Settings, lastBreak, now time.Time) Status {
	st := Status{
		Mode:     s.CountdownMode,
		LastWalk: lastBreak,
		Elapsed:  now.Sub(lastBreak),
	}

	if s.CountdownMode == settings.CountUp {
		return st
	}

	next := lastBreak.Add(time.Duration(s.WalkIntervalHours * float64(time.Hour)))
	if s.IsSleepHour(float64(next.Hour()) + float64(next.Minute())/60) {
		next = nextMorningWalk(s, next)
	}

	st.NextWalk = next
	st.Remain = next.Sub(now)
	st.Overdue = st.Remain < 0
	return st
}

// nextMorningWalk returns the configured morning walk time on the first
// day at or after t whose morning walk has not yet passed.
func nextMorningWalk(s settings.Settings, t time.Time) time.Time {
	hour, minute := s.MorningWalk()
	morning := time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
	if !morning.After(t) {
		morning = morning.AddDate(0, 0, 1)
	}
	return morning
}

// Format renders the status the way the home screen displays it.
func (st Status) Format() string {
	if st.Mode == settings.CountUp {
		return fmt.Sprintf("Letzte Pause vor %s", formatDuration(st.Elapsed))
	}
	if st.Overdue {
		return fmt.Sprintf("Überfällig seit %s", formatDuration(-st.Remain))
	}
	return fmt.Sprintf("Nächste Pause in %s", formatDuration(st.Remain))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%d h %d min", h, m)
}
