package ical

import (
	"strings"
	"testing"
	"time"
)

const sampleFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:abc-123\r\n" +
	"SUMMARY:Tierarzt Termin\r\n" +
	"LOCATION:Praxis Dr. Weber\r\n" +
	"DTSTART:20250602T143000Z\r\n" +
	"DTEND:20250602T150000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:def-456\r\n" +
	"SUMMARY:Hundeschule mit sehr langem Namen\r\n" +
	" \\, Fortsetzung\r\n" +
	"DTSTART;VALUE=DATE:20250603\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:broken-789\r\n" +
	"SUMMARY:Kein Datum\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParse(t *testing.T) {
	events, err := Parse(strings.NewReader(sampleFeed))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// The event without DTSTART is dropped
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	first := events[0]
	if first.UID != "abc-123" {
		t.Errorf("Expected UID abc-123, got %s", first.UID)
	}
	if first.Summary != "Tierarzt Termin" {
		t.Errorf("Unexpected summary: %s", first.Summary)
	}
	want := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	if !first.Start.Equal(want) {
		t.Errorf("Expected start %v, got %v", want, first.Start)
	}
	if !first.End.Equal(want.Add(30 * time.Minute)) {
		t.Errorf("Unexpected end: %v", first.End)
	}
	if first.AllDay {
		t.Error("Timed event should not be all-day")
	}

	second := events[1]
	if !second.AllDay {
		t.Error("Date-only event should be all-day")
	}
	if second.Summary != "Hundeschule mit sehr langem Namen, Fortsetzung" {
		t.Errorf("Folded line not joined correctly: %q", second.Summary)
	}
}

func TestParse_Empty(t *testing.T) {
	events, err := Parse(strings.NewReader("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
}

func TestEventsOn(t *testing.T) {
	events := []Event{
		{UID: "a", Start: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
		{UID: "b", Start: time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)},
		{UID: "c", Start: time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)},
	}

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	got := EventsOn(events, day)
	if len(got) != 2 {
		t.Fatalf("Expected 2 events on June 2, got %d", len(got))
	}
	if got[0].UID != "a" || got[1].UID != "c" {
		t.Errorf("Wrong events selected: %s, %s", got[0].UID, got[1].UID)
	}
}
