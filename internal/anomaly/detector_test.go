package anomaly

import (
	"fmt"
	"testing"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/database"
	"github.com/mbehrens/kalle-tracker/internal/growth"
	"github.com/mbehrens/kalle-tracker/internal/settings"
)

func testSettings(birthday *time.Time) settings.Settings {
	return settings.Settings{
		MorningWalkTime:   "07:00",
		WalkIntervalHours: 4,
		SleepStartHour:    22,
		SleepEndHour:      6.5,
		CountdownMode:     settings.CountDown,
		Birthday:          birthday,
	}
}

// afternoon returns a fixed reference instant at the given waking hour.
func afternoon(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 0, 0, 0, time.UTC)
}

func pipiAt(id string, t time.Time) database.Event {
	return database.Event{ID: id, Type: database.EventPipi, Time: t}
}

func weightAt(id string, t time.Time, kg float64) database.Event {
	return database.Event{ID: id, Type: database.EventGewicht, Time: t, WeightKg: &kg}
}

func phAt(id string, t time.Time, value string) database.Event {
	return database.Event{ID: id, Type: database.EventPHWert, Time: t, PHValue: &value}
}

func findByType(anomalies []Anomaly, typ Type) (Anomaly, bool) {
	for _, a := range anomalies {
		if a.Type == typ {
			return a, true
		}
	}
	return Anomaly{}, false
}

func TestDetect_EmptyInput(t *testing.T) {
	d := NewDetector()

	got := d.Detect(nil, testSettings(nil), afternoon(15))
	if len(got) != 0 {
		t.Errorf("Expected no anomalies for empty input, got %d", len(got))
	}
}

func TestDetect_MissedBreakSeverityBoundaries(t *testing.T) {
	d := NewDetector()
	now := afternoon(15)

	tests := []struct {
		name     string
		elapsed  time.Duration
		want     Severity
		expected bool
	}{
		{"5h59m is fine", 5*time.Hour + 59*time.Minute, "", false},
		{"6h exactly warns", 6 * time.Hour, SeverityWarning, true},
		{"7h warns", 7 * time.Hour, SeverityWarning, true},
		{"8h exactly alerts", 8 * time.Hour, SeverityAlert, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := []database.Event{pipiAt("p1", now.Add(-tc.elapsed))}
			got := d.Detect(events, testSettings(nil), now)

			a, found := findByType(got, TypeMissedBreak)
			if found != tc.expected {
				t.Fatalf("missed_break present=%v, expected %v", found, tc.expected)
			}
			if found && a.Severity != tc.want {
				t.Errorf("Expected severity %s, got %s", tc.want, a.Severity)
			}
		})
	}
}

func TestDetect_MissedBreakOutsideWakingWindow(t *testing.T) {
	d := NewDetector()
	// 23:00 is outside the 8-22 waking window
	now := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)

	events := []database.Event{pipiAt("p1", now.Add(-9*time.Hour))}
	got := d.Detect(events, testSettings(nil), now)

	if _, found := findByType(got, TypeMissedBreak); found {
		t.Error("No missed_break should fire outside the waking window")
	}
}

func TestDetect_UnusualGapFiresAlongsideMissedBreak(t *testing.T) {
	d := NewDetector()
	now := afternoon(15)

	// Regular 90-minute rhythm earlier, then a 7 hour silence: both the
	// absolute overdue rule and the pattern rule fire.
	base := now.Add(-11 * time.Hour)
	events := []database.Event{
		pipiAt("p1", base),
		pipiAt("p2", base.Add(90*time.Minute)),
		pipiAt("p3", base.Add(180*time.Minute)),
		pipiAt("p4", base.Add(4*time.Hour)), // 7h before now
	}

	got := d.Detect(events, testSettings(nil), now)

	if _, found := findByType(got, TypeMissedBreak); !found {
		t.Error("Expected missed_break anomaly")
	}
	if _, found := findByType(got, TypePatternChange); !found {
		t.Error("Expected pattern_change anomaly for the unusual gap")
	}
}

func TestDetect_WeightDeviationBoundary(t *testing.T) {
	// Flat curve so expected weight is 10kg at any checked age
	d := NewDetectorWithCurve(growth.NewCurve(
		[]growth.Knot{{AgeMonths: 2, WeightKg: 10}, {AgeMonths: 18, WeightKg: 10}},
		growth.WithCheckRange(2, 18),
	))

	birthday := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := testSettings(&birthday)
	now := birthday.AddDate(0, 0, 183) // ~6 months

	tests := []struct {
		name     string
		kg       float64
		want     Severity
		expected bool
	}{
		{"exactly 5 percent under is fine", 9.5, "", false},
		{"5.1 percent under warns", 9.49, SeverityWarning, true},
		{"exactly 10 percent over warns", 11.0, SeverityWarning, true},
		{"10.1 percent over alerts", 11.01, SeverityAlert, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := []database.Event{weightAt("w1", now.Add(-time.Hour), tc.kg)}
			got := d.Detect(events, s, now)

			a, found := findByType(got, TypeWeightDeviation)
			if found != tc.expected {
				t.Fatalf("weight_deviation present=%v, expected %v", found, tc.expected)
			}
			if found && a.Severity != tc.want {
				t.Errorf("Expected severity %s, got %s", tc.want, a.Severity)
			}
		})
	}
}

func TestDetect_WeightDeviationTitles(t *testing.T) {
	d := NewDetectorWithCurve(growth.NewCurve(
		[]growth.Knot{{AgeMonths: 2, WeightKg: 10}, {AgeMonths: 18, WeightKg: 10}},
		growth.WithCheckRange(2, 18),
	))

	birthday := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := testSettings(&birthday)
	now := birthday.AddDate(0, 0, 183)

	got := d.Detect([]database.Event{weightAt("w1", now.Add(-time.Hour), 8.0)}, s, now)
	a, found := findByType(got, TypeWeightDeviation)
	if !found || a.Title != "Untergewicht" {
		t.Errorf("Expected Untergewicht, got %+v", a)
	}

	got = d.Detect([]database.Event{weightAt("w1", now.Add(-time.Hour), 12.0)}, s, now)
	a, found = findByType(got, TypeWeightDeviation)
	if !found || a.Title != "Übergewicht" {
		t.Errorf("Expected Übergewicht, got %+v", a)
	}
}

func TestDetect_RapidWeightLossCollapsesWithDeviation(t *testing.T) {
	d := NewDetectorWithCurve(growth.NewCurve(
		[]growth.Knot{{AgeMonths: 2, WeightKg: 10}, {AgeMonths: 18, WeightKg: 10}},
		growth.WithCheckRange(2, 18),
	))

	birthday := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := testSettings(&birthday)
	now := birthday.AddDate(0, 0, 183)

	// 10.2kg -> 9.4kg in 7 days: -0.8 kg/week (alert), and 9.4kg is -6%
	// off the curve (warning). Same dedup key, only the alert survives.
	events := []database.Event{
		weightAt("w-old", now.AddDate(0, 0, -8), 10.2),
		weightAt("w-new", now.AddDate(0, 0, -1), 9.4),
	}

	got := d.Detect(events, s, now)

	var weightAnomalies []Anomaly
	for _, a := range got {
		if a.Type == TypeWeightDeviation {
			weightAnomalies = append(weightAnomalies, a)
		}
	}
	if len(weightAnomalies) != 1 {
		t.Fatalf("Expected exactly 1 weight anomaly after dedup, got %d", len(weightAnomalies))
	}
	if weightAnomalies[0].Severity != SeverityAlert {
		t.Errorf("Expected the alert to survive dedup, got %s", weightAnomalies[0].Severity)
	}
	if weightAnomalies[0].Title != "Schneller Gewichtsverlust" {
		t.Errorf("Expected the velocity alert to win, got %q", weightAnomalies[0].Title)
	}
}

func TestDetect_WeightSkippedWithoutBirthday(t *testing.T) {
	d := NewDetector()
	now := afternoon(15)

	events := []database.Event{weightAt("w1", now.Add(-time.Hour), 50)}
	got := d.Detect(events, testSettings(nil), now)

	if _, found := findByType(got, TypeWeightDeviation); found {
		t.Error("Weight deviation needs a birthday to compute age")
	}
}

func TestDetect_PHBandBoundaries(t *testing.T) {
	d := NewDetector()
	now := afternoon(15)

	tests := []struct {
		name     string
		value    string
		want     Severity
		expected bool
	}{
		{"6,5 is normal", "6,5", "", false},
		{"7,2 is normal", "7,2", "", false},
		{"6,49 warns", "6,49", SeverityWarning, true},
		{"7,21 warns", "7,21", SeverityWarning, true},
		{"5,99 alerts", "5,99", SeverityAlert, true},
		{"7,51 alerts", "7,51", SeverityAlert, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := []database.Event{phAt("ph1", now.Add(-time.Hour), tc.value)}
			got := d.Detect(events, testSettings(nil), now)

			a, found := findByType(got, TypePHDeviation)
			if found != tc.expected {
				t.Fatalf("ph_deviation present=%v, expected %v", found, tc.expected)
			}
			if found && a.Severity != tc.want {
				t.Errorf("Expected severity %s, got %s", tc.want, a.Severity)
			}
		})
	}
}

func TestDetect_MalformedPHSkipped(t *testing.T) {
	d := NewDetector()
	now := afternoon(15)

	events := []database.Event{phAt("ph1", now.Add(-time.Hour), "sauer")}
	got := d.Detect(events, testSettings(nil), now)

	if _, found := findByType(got, TypePHDeviation); found {
		t.Error("Malformed pH value should be skipped, not flagged")
	}
}

func TestDetect_PersistentPHDeviation(t *testing.T) {
	d := NewDetector()
	now := afternoon(15)

	events := []database.Event{
		phAt("ph1", now.Add(-72*time.Hour), "6,3"),
		phAt("ph2", now.Add(-48*time.Hour), "6,2"),
		phAt("ph3", now.Add(-24*time.Hour), "6,4"),
	}
	got := d.Detect(events, testSettings(nil), now)

	// Single-reading warning and persistence alert share a dedup key;
	// the alert wins and its title identifies the persistent deviation.
	a, found := findByType(got, TypePHDeviation)
	if !found {
		t.Fatal("Expected a pH anomaly")
	}
	if a.Severity != SeverityAlert {
		t.Errorf("Expected persistent deviation alert, got %s", a.Severity)
	}
	if a.Title != "Anhaltende pH-Abweichung" {
		t.Errorf("Expected the persistence alert to survive dedup, got %q", a.Title)
	}
}

func TestDetect_FrequencyChange(t *testing.T) {
	d := NewDetector()
	now := afternoon(15)

	// Previous week: 4 events. Trailing week: 7 events (+75%). The last
	// event is 2h ago so neither break rule interferes.
	var events []database.Event
	for i := 0; i < 4; i++ {
		events = append(events, pipiAt(fmt.Sprintf("prev%d", i), now.AddDate(0, 0, -9).Add(time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 7; i++ {
		events = append(events, pipiAt(fmt.Sprintf("cur%d", i), now.Add(time.Duration(i-8)*time.Hour)))
	}

	got := d.Detect(events, testSettings(nil), now)

	a, found := findByType(got, TypePatternChange)
	if !found {
		t.Fatal("Expected a pattern_change anomaly")
	}
	if a.Severity != SeverityInfo || a.Title != "Mehr Spaziergänge" {
		t.Errorf("Expected 'Mehr Spaziergänge' info, got %q (%s)", a.Title, a.Severity)
	}

	// Now the inverse: 8 before, 3 after (-62.5%).
	events = nil
	for i := 0; i < 8; i++ {
		events = append(events, pipiAt(fmt.Sprintf("prev%d", i), now.AddDate(0, 0, -9).Add(time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 3; i++ {
		events = append(events, pipiAt(fmt.Sprintf("cur%d", i), now.Add(time.Duration(2*i-6)*time.Hour)))
	}

	got = d.Detect(events, testSettings(nil), now)

	a, found = findByType(got, TypePatternChange)
	if !found {
		t.Fatal("Expected a pattern_change anomaly")
	}
	if a.Severity != SeverityWarning || a.Title != "Weniger Spaziergänge" {
		t.Errorf("Expected 'Weniger Spaziergänge' warning, got %q (%s)", a.Title, a.Severity)
	}
}

func TestRankAndDedup_SortOrder(t *testing.T) {
	t1 := afternoon(10)
	t2 := afternoon(11)
	t3 := afternoon(12)

	candidates := []Anomaly{
		{ID: "i", Type: TypePatternChange, Severity: SeverityInfo, Timestamp: t1},
		{ID: "a", Type: TypeMissedBreak, Severity: SeverityAlert, Timestamp: t2, RelatedEventID: "e1"},
		{ID: "w", Type: TypePHDeviation, Severity: SeverityWarning, Timestamp: t3, RelatedEventID: "e2"},
	}

	got := rankAndDedup(candidates)
	if len(got) != 3 {
		t.Fatalf("Expected 3 anomalies, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "w" || got[2].ID != "i" {
		t.Errorf("Wrong order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestRankAndDedup_KeepsHighestSeverityPerKey(t *testing.T) {
	now := afternoon(12)

	candidates := []Anomaly{
		{ID: "low", Type: TypeWeightDeviation, Severity: SeverityWarning, Timestamp: now, RelatedEventID: "e1"},
		{ID: "high", Type: TypeWeightDeviation, Severity: SeverityAlert, Timestamp: now, RelatedEventID: "e1"},
	}

	got := rankAndDedup(candidates)
	if len(got) != 1 {
		t.Fatalf("Expected 1 anomaly after dedup, got %d", len(got))
	}
	if got[0].ID != "high" {
		t.Errorf("Expected the alert to survive, got %s", got[0].ID)
	}
}

func TestParsePH(t *testing.T) {
	if v, ok := ParsePH("6,8"); !ok || v != 6.8 {
		t.Errorf("Expected 6.8, got %v (ok=%v)", v, ok)
	}
	if v, ok := ParsePH("7.0"); !ok || v != 7.0 {
		t.Errorf("Dot-decimal should also parse, got %v (ok=%v)", v, ok)
	}
	if _, ok := ParsePH("abc"); ok {
		t.Error("Non-numeric value should not parse")
	}
	if _, ok := ParsePH(""); ok {
		t.Error("Empty value should not parse")
	}
}
