package stats

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/database"
)

func breakEvent(t time.Time, typ database.EventType) database.Event {
	return database.Event{
		ID:   fmt.Sprintf("%s-%d", typ, t.UnixNano()),
		Type: typ,
		Time: t,
	}
}

func TestAverageIntervalMinutes_RequiresThreeEvents(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	events := []database.Event{
		breakEvent(base, database.EventPipi),
		breakEvent(base.Add(2*time.Hour), database.EventPipi),
	}

	if _, ok := AverageIntervalMinutes(events, database.EventPipi); ok {
		t.Error("Two events should not produce an average")
	}
}

func TestAverageIntervalMinutes_Mean(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	// Gaps: 120 min, 240 min -> mean 180
	events := []database.Event{
		breakEvent(base.Add(6*time.Hour), database.EventPipi), // unsorted on purpose
		breakEvent(base, database.EventPipi),
		breakEvent(base.Add(2*time.Hour), database.EventPipi),
	}

	avg, ok := AverageIntervalMinutes(events, database.EventPipi)
	if !ok {
		t.Fatal("Expected an average")
	}
	if math.Abs(avg-180) > 1e-9 {
		t.Errorf("Expected mean of 180 minutes, got %v", avg)
	}
}

func TestAverageIntervalMinutes_IgnoresOtherTypes(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	events := []database.Event{
		breakEvent(base, database.EventPipi),
		breakEvent(base.Add(1*time.Hour), database.EventStuhlgang),
		breakEvent(base.Add(2*time.Hour), database.EventPipi),
	}

	if _, ok := AverageIntervalMinutes(events, database.EventPipi); ok {
		t.Error("Only two pipi events, should not produce an average")
	}
}

func TestAverageIntervalMinutes_OvernightCutoff(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	// 719 min gap is included, 720 min gap is excluded
	events := []database.Event{
		breakEvent(base, database.EventPipi),
		breakEvent(base.Add(719*time.Minute), database.EventPipi),
		breakEvent(base.Add((719+720)*time.Minute), database.EventPipi),
	}

	avg, ok := AverageIntervalMinutes(events, database.EventPipi)
	if !ok {
		t.Fatal("Expected an average from the remaining gap")
	}
	if avg != 719 {
		t.Errorf("Expected only the 719 minute gap to survive, got %v", avg)
	}
}

func TestAverageIntervalMinutes_AllGapsExcluded(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	events := []database.Event{
		breakEvent(base, database.EventPipi),
		breakEvent(base.Add(13*time.Hour), database.EventPipi),
		breakEvent(base.Add(26*time.Hour), database.EventPipi),
	}

	if _, ok := AverageIntervalMinutes(events, database.EventPipi); ok {
		t.Error("All gaps overnight, should not produce an average")
	}
}

func TestCountInWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	events := []database.Event{
		breakEvent(base.Add(1*time.Hour), database.EventPipi),
		breakEvent(base.Add(2*time.Hour), database.EventStuhlgang),
		breakEvent(base.Add(30*time.Hour), database.EventPipi),
	}

	count := CountInWindow(events, []database.EventType{database.EventPipi}, base, base.Add(24*time.Hour))
	if count != 1 {
		t.Errorf("Expected 1 pipi event in window, got %d", count)
	}

	count = CountInWindow(events,
		[]database.EventType{database.EventPipi, database.EventStuhlgang},
		base, base.Add(48*time.Hour))
	if count != 3 {
		t.Errorf("Expected 3 break events in window, got %d", count)
	}

	// Window end is exclusive
	count = CountInWindow(events, []database.EventType{database.EventPipi}, base, base.Add(1*time.Hour))
	if count != 0 {
		t.Errorf("Window end should be exclusive, got %d", count)
	}
}

func TestLatestBreak(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	events := []database.Event{
		breakEvent(base, database.EventPipi),
		breakEvent(base.Add(3*time.Hour), database.EventStuhlgang),
		{ID: "w1", Type: database.EventGewicht, Time: base.Add(5 * time.Hour)},
	}

	latest, ok := LatestBreak(events)
	if !ok {
		t.Fatal("Expected a latest break")
	}
	if latest.Type != database.EventStuhlgang {
		t.Errorf("Expected the stuhlgang event, got %s", latest.Type)
	}

	if _, ok := LatestBreak(nil); ok {
		t.Error("Empty input should report no break")
	}
}

func TestRecentOfType(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	var events []database.Event
	for i := 0; i < 5; i++ {
		events = append(events, breakEvent(base.Add(time.Duration(i)*time.Hour), database.EventPHWert))
	}

	recent := RecentOfType(events, database.EventPHWert, 3)
	if len(recent) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(recent))
	}
	if !recent[0].Time.After(recent[1].Time) || !recent[1].Time.After(recent[2].Time) {
		t.Error("Expected newest-first ordering")
	}
}
