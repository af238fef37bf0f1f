package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/database"
	"github.com/mbehrens/kalle-tracker/internal/growth"
	"github.com/mbehrens/kalle-tracker/internal/settings"
	"github.com/mbehrens/kalle-tracker/internal/stats"
)

// Tunables for the four rule families. Kept as named constants so they
// can be promoted to settings without touching the rule logic.
const (
	WakingStartHour = 8
	WakingEndHour   = 22

	MissedBreakWarnHours  = 6.0
	MissedBreakAlertHours = 8.0

	UnusualGapFactor   = 2.0
	UnusualGapMinHours = 4.0

	WeightWarnDeviation  = 0.05
	WeightAlertDeviation = 0.10
	GrowthCheckMinMonth  = 2
	GrowthCheckMaxMonth  = 18

	RapidLossKgPerWeek = 0.5
	RapidGainKgPerWeek = 1.5
	VelocityMaxDays    = 14.0

	PHNormalLow    = 6.5
	PHNormalHigh   = 7.2
	PHAlertLow     = 6.0
	PHAlertHigh    = 7.5
	PHPersistCount = 3

	FrequencyWindowDays      = 7
	FrequencyChangeThreshold = 0.5
)

// Detector evaluates the event history against all rule families.
type Detector struct {
	curve *growth.Curve
}

// NewDetector creates a detector using the default growth curve with the
// [2,18] month check range.
func NewDetector() *Detector {
	return &Detector{
		curve: growth.DefaultCurve(
			growth.WithCheckRange(GrowthCheckMinMonth, GrowthCheckMaxMonth),
		),
	}
}

// NewDetectorWithCurve creates a detector with a custom growth curve.
func NewDetectorWithCurve(curve *growth.Curve) *Detector {
	return &Detector{curve: curve}
}

// Detect runs all rule families against the event snapshot and returns
// the ranked, deduplicated anomaly list. Pure: same inputs, same output.
// It never fails; malformed values skip their signal silently.
func (d *Detector) Detect(events []database.Event, s settings.Settings, now time.Time) []Anomaly {
	var candidates []Anomaly
	candidates = append(candidates, d.checkMissedBreak(events, now)...)
	candidates = append(candidates, d.checkWeight(events, s)...)
	candidates = append(candidates, d.checkPH(events)...)
	candidates = append(candidates, d.checkFrequency(events, now)...)
	return rankAndDedup(candidates)
}

// checkMissedBreak flags an overdue bathroom break in absolute terms and,
// independently, a gap that is unusual relative to the dog's own pattern.
// Both firing at once is intended: they answer different questions.
func (d *Detector) checkMissedBreak(events []database.Event, now time.Time) []Anomaly {
	last, ok := stats.LatestBreak(events)
	if !ok {
		return nil
	}

	var found []Anomaly
	elapsed := now.Sub(last.Time)
	elapsedHours := elapsed.Hours()

	hour := now.Hour()
	if hour >= WakingStartHour && hour <= WakingEndHour && elapsedHours >= MissedBreakWarnHours {
		severity := SeverityWarning
		if elapsedHours >= MissedBreakAlertHours {
			severity = SeverityAlert
		}
		found = append(found, Anomaly{
			ID:             "missed_break:" + last.ID,
			Type:           TypeMissedBreak,
			Severity:       severity,
			Title:          "Gassi überfällig",
			Description:    fmt.Sprintf("Letzte Pause vor %.1f Stunden.", elapsedHours),
			Timestamp:      now,
			RelatedEventID: last.ID,
		})
	}

	if avg, ok := stats.AverageIntervalMinutes(events, database.EventPipi); ok {
		if elapsed.Minutes() > UnusualGapFactor*avg && elapsedHours >= UnusualGapMinHours {
			found = append(found, Anomaly{
				ID:       "unusual_gap:" + last.ID,
				Type:     TypePatternChange,
				Severity: SeverityInfo,
				Title:    "Ungewöhnlich lange Pause",
				Description: fmt.Sprintf("%.0f Minuten seit der letzten Pause, üblich sind etwa %.0f Minuten.",
					elapsed.Minutes(), avg),
				Timestamp:      now,
				RelatedEventID: last.ID,
			})
		}
	}

	return found
}

// checkWeight flags deviation from the growth curve and, separately, a
// rapid weekly rate of change between the two most recent measurements.
// Both share the dedup key of the latest weight event, so only the worst
// one survives ranking.
func (d *Detector) checkWeight(events []database.Event, s settings.Settings) []Anomaly {
	var weights []database.Event
	for _, e := range events {
		if e.Type == database.EventGewicht && e.WeightKg != nil {
			weights = append(weights, e)
		}
	}
	if len(weights) == 0 {
		return nil
	}
	sort.SliceStable(weights, func(i, j int) bool { return weights[i].Time.After(weights[j].Time) })

	var found []Anomaly
	latest := weights[0]

	if s.Birthday != nil {
		age := growth.AgeInMonths(*s.Birthday, latest.Time)
		if d.curve.InCheckRange(age) {
			dev := d.curve.Deviation(*latest.WeightKg, age)
			if math.Abs(dev) > WeightWarnDeviation {
				title := "Übergewicht"
				if dev < 0 {
					title = "Untergewicht"
				}
				severity := SeverityWarning
				if math.Abs(dev) > WeightAlertDeviation {
					severity = SeverityAlert
				}
				found = append(found, Anomaly{
					ID:       "weight_deviation:" + latest.ID,
					Type:     TypeWeightDeviation,
					Severity: severity,
					Title:    title,
					Description: fmt.Sprintf("%.1f kg gemessen, erwartet sind %.1f kg (%+.1f%%).",
						*latest.WeightKg, d.curve.ExpectedWeight(age), dev*100),
					Timestamp:      latest.Time,
					RelatedEventID: latest.ID,
				})
			}
		}
	}

	if len(weights) >= 2 {
		previous := weights[1]
		days := latest.Time.Sub(previous.Time).Hours() / 24
		if days > 0 && days <= VelocityMaxDays {
			perWeek := (*latest.WeightKg - *previous.WeightKg) / (days / 7)
			if perWeek < -RapidLossKgPerWeek {
				found = append(found, Anomaly{
					ID:             "weight_velocity:" + latest.ID,
					Type:           TypeWeightDeviation,
					Severity:       SeverityAlert,
					Title:          "Schneller Gewichtsverlust",
					Description:    fmt.Sprintf("%.2f kg pro Woche verloren.", -perWeek),
					Timestamp:      latest.Time,
					RelatedEventID: latest.ID,
				})
			} else if perWeek > RapidGainKgPerWeek {
				found = append(found, Anomaly{
					ID:             "weight_velocity:" + latest.ID,
					Type:           TypeWeightDeviation,
					Severity:       SeverityWarning,
					Title:          "Schnelle Gewichtszunahme",
					Description:    fmt.Sprintf("%.2f kg pro Woche zugenommen.", perWeek),
					Timestamp:      latest.Time,
					RelatedEventID: latest.ID,
				})
			}
		}
	}

	return found
}

// ParsePH parses a comma-decimal pH string like "6,8". Returns ok=false
// for values that do not parse; the caller skips that signal silently.
func ParsePH(value string) (float64, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type phReading struct {
	event database.Event
	value float64
}

// checkPH flags the most recent pH reading outside the normal band and a
// persistent deviation across the three most recent readings.
func (d *Detector) checkPH(events []database.Event) []Anomaly {
	var readings []phReading
	for _, e := range events {
		if e.Type != database.EventPHWert || e.PHValue == nil {
			continue
		}
		v, ok := ParsePH(*e.PHValue)
		if !ok {
			continue
		}
		readings = append(readings, phReading{event: e, value: v})
	}
	if len(readings) == 0 {
		return nil
	}
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].event.Time.After(readings[j].event.Time)
	})

	var found []Anomaly
	latest := readings[0]

	if phOutsideBand(latest.value) {
		label := "zu hoch"
		if latest.value < PHNormalLow {
			label = "zu niedrig"
		}
		severity := SeverityWarning
		if latest.value < PHAlertLow || latest.value > PHAlertHigh {
			severity = SeverityAlert
		}
		found = append(found, Anomaly{
			ID:       "ph_reading:" + latest.event.ID,
			Type:     TypePHDeviation,
			Severity: severity,
			Title:    "pH-Wert " + label,
			Description: fmt.Sprintf("Gemessener pH-Wert %.1f liegt außerhalb des Normbereichs %.1f–%.1f.",
				latest.value, PHNormalLow, PHNormalHigh),
			Timestamp:      latest.event.Time,
			RelatedEventID: latest.event.ID,
		})
	}

	if len(readings) >= PHPersistCount {
		persistent := true
		for _, r := range readings[:PHPersistCount] {
			if !phOutsideBand(r.value) {
				persistent = false
				break
			}
		}
		if persistent {
			found = append(found, Anomaly{
				ID:       "ph_persistent:" + latest.event.ID,
				Type:     TypePHDeviation,
				Severity: SeverityAlert,
				Title:    "Anhaltende pH-Abweichung",
				Description: fmt.Sprintf("Die letzten %d Messungen liegen außerhalb des Normbereichs.",
					PHPersistCount),
				Timestamp:      latest.event.Time,
				RelatedEventID: latest.event.ID,
			})
		}
	}

	return found
}

func phOutsideBand(v float64) bool {
	return v < PHNormalLow || v > PHNormalHigh
}

// checkFrequency compares the pee count of the trailing week against the
// week before it.
func (d *Detector) checkFrequency(events []database.Event, now time.Time) []Anomaly {
	weekAgo := now.AddDate(0, 0, -FrequencyWindowDays)
	twoWeeksAgo := now.AddDate(0, 0, -2*FrequencyWindowDays)
	pipi := []database.EventType{database.EventPipi}

	recent := stats.CountInWindow(events, pipi, weekAgo, now)
	previous := stats.CountInWindow(events, pipi, twoWeeksAgo, weekAgo)
	if recent == 0 || previous == 0 {
		return nil
	}

	change := float64(recent-previous) / float64(previous)
	switch {
	case change > FrequencyChangeThreshold:
		return []Anomaly{{
			ID:       "walk_frequency",
			Type:     TypePatternChange,
			Severity: SeverityInfo,
			Title:    "Mehr Spaziergänge",
			Description: fmt.Sprintf("%d Pipi-Ereignisse diese Woche gegenüber %d in der Vorwoche.",
				recent, previous),
			Timestamp: now,
		}}
	case change < -FrequencyChangeThreshold:
		return []Anomaly{{
			ID:       "walk_frequency",
			Type:     TypePatternChange,
			Severity: SeverityWarning,
			Title:    "Weniger Spaziergänge",
			Description: fmt.Sprintf("%d Pipi-Ereignisse diese Woche gegenüber %d in der Vorwoche.",
				recent, previous),
			Timestamp: now,
		}}
	}
	return nil
}
