package stats

import (
	"sort"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/database"
)

// MaxGapMinutes is the cutoff above which a gap between two events is
// treated as overnight and excluded from the interval average.
const MaxGapMinutes = 720

// MinEventsForAverage is the minimum number of same-type events required
// before an interval average is meaningful.
const MinEventsForAverage = 3

// AverageIntervalMinutes computes the mean gap in minutes between
// successive events of the given type. Returns ok=false when fewer than
// MinEventsForAverage events exist or no representative gap remains after
// dropping non-positive and overnight gaps.
func AverageIntervalMinutes(events []database.Event, t database.EventType) (float64, bool) {
	var times []time.Time
	for _, e := range events {
		if e.Type == t {
			times = append(times, e.Time)
		}
	}

	if len(times) < MinEventsForAverage {
		return 0, false
	}

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	var sum float64
	var count int
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1]).Minutes()
		if gap <= 0 || gap >= MaxGapMinutes {
			continue
		}
		sum += gap
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// CountInWindow counts events of the given types with time in [from, to).
func CountInWindow(events []database.Event, types []database.EventType, from, to time.Time) int {
	count := 0
	for _, e := range events {
		if e.Time.Before(from) || !e.Time.Before(to) {
			continue
		}
		for _, t := range types {
			if e.Type == t {
				count++
				break
			}
		}
	}
	return count
}

// LatestOfType returns the most recent event of the given type, or
// ok=false when none exists.
func LatestOfType(events []database.Event, t database.EventType) (database.Event, bool) {
	var latest database.Event
	found := false
	for _, e := range events {
		if e.Type != t {
			continue
		}
		if !found || e.Time.After(latest.Time) {
			latest = e
			found = true
		}
	}
	return latest, found
}

// LatestBreak returns the most recent bathroom break (pee or poop), or
// ok=false when none exists.
func LatestBreak(events []database.Event) (database.Event, bool) {
	var latest database.Event
	found := false
	for _, e := range events {
		if !e.Type.IsBreak() {
			continue
		}
		if !found || e.Time.After(latest.Time) {
			latest = e
			found = true
		}
	}
	return latest, found
}

// RecentOfType returns up to n most recent events of the given type,
// newest first.
func RecentOfType(events []database.Event, t database.EventType, n int) []database.Event {
	var matched []database.Event
	for _, e := range events {
		if e.Type == t {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Time.After(matched[j].Time) })
	if len(matched) > n {
		matched = matched[:n]
	}
	return matched
}
