package countdown

import (
	"testing"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/settings"
)

func daySettings(mode settings.CountdownMode) settings.Settings {
	return settings.Settings{
		MorningWalkTime:   "07:00",
		WalkIntervalHours: 4,
		SleepStartHour:    22,
		SleepEndHour:      6.5,
		CountdownMode:     mode,
	}
}

func TestNext_CountDown(t *testing.T) {
	s := daySettings(settings.CountDown)
	lastBreak := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	now := lastBreak.Add(90 * time.Minute)

	st := Next(s, lastBreak, now)

	wantNext := lastBreak.Add(4 * time.Hour)
	if !st.NextWalk.Equal(wantNext) {
		t.Errorf("Expected next walk at %v, got %v", wantNext, st.NextWalk)
	}
	if st.Remain != 150*time.Minute {
		t.Errorf("Expected 150 minutes remaining, got %v", st.Remain)
	}
	if st.Overdue {
		t.Error("Not overdue yet")
	}
}

func TestNext_Overdue(t *testing.T) {
	s := daySettings(settings.CountDown)
	lastBreak := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	now := lastBreak.Add(5 * time.Hour)

	st := Next(s, lastBreak, now)

	if !st.Overdue {
		t.Error("Expected overdue status")
	}
	if st.Remain != -time.Hour {
		t.Errorf("Expected -1h remaining, got %v", st.Remain)
	}
}

func TestNext_SleepWindowPushesToMorning(t *testing.T) {
	s := daySettings(settings.CountDown)
	// Last break 21:00, interval lands at 01:00 which is asleep
	lastBreak := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)
	now := lastBreak.Add(time.Hour)

	st := Next(s, lastBreak, now)

	wantNext := time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC)
	if !st.NextWalk.Equal(wantNext) {
		t.Errorf("Expected morning walk at %v, got %v", wantNext, st.NextWalk)
	}
}

func TestNext_CountUp(t *testing.T) {
	s := daySettings(settings.CountUp)
	lastBreak := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	now := lastBreak.Add(2 * time.Hour)

	st := Next(s, lastBreak, now)

	if !st.NextWalk.IsZero() {
		t.Error("Count-up mode has no next walk target")
	}
	if st.Elapsed != 2*time.Hour {
		t.Errorf("Expected 2h elapsed, got %v", st.Elapsed)
	}
}

func TestFormat(t *testing.T) {
	s := daySettings(settings.CountDown)
	lastBreak := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	st := Next(s, lastBreak, lastBreak.Add(90*time.Minute))
	if got := st.Format(); got != "Nächste Pause in 2 h 30 min" {
		t.Errorf("Unexpected format: %q", got)
	}

	st = Next(s, lastBreak, lastBreak.Add(5*time.Hour))
	if got := st.Format(); got != "Überfällig seit 1 h 0 min" {
		t.Errorf("Unexpected overdue format: %q", got)
	}

	up := Next(daySettings(settings.CountUp), lastBreak, lastBreak.Add(45*time.Minute))
	if got := up.Format(); got != "Letzte Pause vor 45 min" {
		t.Errorf("Unexpected count-up format: %q", got)
	}
}
