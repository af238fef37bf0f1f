package anomaly

import (
	"sort"
	"time"
)

// Type identifies the anomaly family.
type Type string

const (
	TypeMissedBreak     Type = "missed_break"
	TypeUpcomingBreak   Type = "upcoming_break"
	TypeWeightDeviation Type = "weight_deviation"
	TypePHDeviation     Type = "ph_deviation"
	TypePatternChange   Type = "pattern_change"
)

// Severity orders anomalies for display: alert before warning before info.
type Severity string

const (
	SeverityAlert   Severity = "alert"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank returns the sort precedence of a severity, lower is more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityAlert:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}

// Anomaly is one detected irregularity. Created fresh on every detection
// run, never persisted by the detector itself.
type Anomaly struct {
	ID             string
	Type           Type
	Severity       Severity
	Title          string
	Description    string
	Timestamp      time.Time
	RelatedEventID string // empty when not tied to a single event
}

// DedupKey groups candidate anomalies about the same underlying fact.
// At most one anomaly per key survives a detection run.
func (a Anomaly) DedupKey() string {
	related := a.RelatedEventID
	if related == "" {
		related = "general"
	}
	return string(a.Type) + ":" + related
}

// rankAndDedup sorts candidates by severity rank ascending (most urgent
// first), ties broken by most recent timestamp, then drops all but the
// first anomaly per dedup key.
func rankAndDedup(candidates []Anomaly) []Anomaly {
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := candidates[i].Severity.Rank(), candidates[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return candidates[i].Timestamp.After(candidates[j].Timestamp)
	})

	seen := make(map[string]bool, len(candidates))
	result := make([]Anomaly, 0, len(candidates))
	for _, a := range candidates {
		key := a.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, a)
	}
	return result
}
