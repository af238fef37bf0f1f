package schedule

import (
	"sort"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/database"
)

// Lookback windows for the historical break average. Weekends have far
// sparser data, so a longer window is used.
const (
	WeekdayLookbackDays = 14
	WeekendLookbackDays = 60
)

// HistPoint is one historical break occurrence, reduced to its fractional
// hour of day.
type HistPoint struct {
	Hour float64
	Poop bool
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// HourOf returns the fractional hour of day of an instant, minute
// resolution.
func HourOf(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// HistoricalHours collects break times from the trailing lookback window
// whose day falls in the same weekday/weekend bucket as the target day.
// Result is sorted ascending by hour, stable in event order.
func HistoricalHours(events []database.Event, day, now time.Time) []HistPoint {
	weekend := isWeekend(day)
	lookback := WeekdayLookbackDays
	if weekend {
		lookback = WeekendLookbackDays
	}
	from := now.AddDate(0, 0, -lookback)

	var points []HistPoint
	for _, e := range events {
		if !e.Type.IsBreak() {
			continue
		}
		if e.Time.Before(from) || e.Time.After(now) {
			continue
		}
		if isWeekend(e.Time) != weekend {
			continue
		}
		points = append(points, HistPoint{
			Hour: HourOf(e.Time),
			Poop: e.Type == database.EventStuhlgang,
		})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Hour < points[j].Hour })
	return points
}
