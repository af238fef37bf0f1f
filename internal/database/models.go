package database

import (
	"time"
)

// EventType identifies what was logged. The German names come from the
// phone client and are stored verbatim.
type EventType string

const (
	EventPipi      EventType = "pipi"
	EventStuhlgang EventType = "stuhlgang"
	EventPHWert    EventType = "phwert"
	EventGewicht   EventType = "gewicht"
)

// IsBreak reports whether the event type is a bathroom break (pee or poop).
func (t EventType) IsBreak() bool {
	return t == EventPipi || t == EventStuhlgang
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventPipi, EventStuhlgang, EventPHWert, EventGewicht:
		return true
	}
	return false
}

// Event represents one logged care event. Immutable once created except
// for deletion.
type Event struct {
	ID         string
	Type       EventType
	Time       time.Time
	PHValue    *string // comma-decimal string as entered, e.g. "6,8"
	WeightKg   *float64
	ReceivedAt time.Time
}

// AnomalyLog represents a persisted record of a triggered alert.
type AnomalyLog struct {
	ID             int64
	AnomalyType    string
	Severity       string
	Title          string
	Description    string
	RelatedEventID *string
	TriggeredAt    time.Time
	CreatedAt      time.Time
}
