package ical

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Event is one resolved calendar entry. Start and End are absolute
// instants; recurrence expansion is the feed owner's job, not ours.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Fetch downloads and parses an ICS feed.
func Fetch(url string) ([]Event, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar feed returned status %d", resp.StatusCode)
	}

	return Parse(resp.Body)
}

// Parse reads an ICS stream and returns all VEVENTs with a parseable
// DTSTART. Unknown properties and malformed events are skipped.
func Parse(r io.Reader) ([]Event, error) {
	lines, err := unfold(r)
	if err != nil {
		return nil, err
	}

	var events []Event
	var current *Event

	for _, line := range lines {
		switch {
		case line == "BEGIN:VEVENT":
			current = &Event{}
		case line == "END:VEVENT":
			if current != nil && !current.Start.IsZero() {
				events = append(events, *current)
			}
			current = nil
		case current != nil:
			applyProperty(current, line)
		}
	}

	return events, nil
}

// unfold joins folded lines: a line starting with a space or tab
// continues the previous one (RFC 5545 §3.1).
func unfold(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read calendar data: %w", err)
	}
	return lines, nil
}

func applyProperty(ev *Event, line string) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return
	}
	name := line[:colon]
	value := line[colon+1:]

	// Strip property parameters like ;TZID=Europe/Berlin or ;VALUE=DATE
	params := ""
	if semi := strings.Index(name, ";"); semi >= 0 {
		params = name[semi+1:]
		name = name[:semi]
	}

	switch strings.ToUpper(name) {
	case "UID":
		ev.UID = value
	case "SUMMARY":
		ev.Summary = unescape(value)
	case "LOCATION":
		ev.Location = unescape(value)
	case "DESCRIPTION":
		ev.Description = unescape(value)
	case "DTSTART":
		if t, allDay, ok := parseDateTime(value, params); ok {
			ev.Start = t
			ev.AllDay = allDay
		}
	case "DTEND":
		if t, _, ok := parseDateTime(value, params); ok {
			ev.End = t
		}
	}
}

// parseDateTime handles the three DTSTART/DTEND forms: UTC date-time
// (trailing Z), floating/zoned date-time, and all-day date values.
func parseDateTime(value, params string) (t time.Time, allDay bool, ok bool) {
	loc := time.Local
	for _, p := range strings.Split(params, ";") {
		if name, ok := strings.CutPrefix(p, "TZID="); ok {
			if parsed, err := time.LoadLocation(name); err == nil {
				loc = parsed
			}
		}
	}

	if strings.HasSuffix(value, "Z") {
		if parsed, err := time.Parse("20060102T150405Z", value); err == nil {
			return parsed, false, true
		}
		return time.Time{}, false, false
	}

	if parsed, err := time.ParseInLocation("20060102T150405", value, loc); err == nil {
		return parsed, false, true
	}

	if parsed, err := time.ParseInLocation("20060102", value, loc); err == nil {
		return parsed, true, true
	}

	return time.Time{}, false, false
}

func unescape(s string) string {
	replacer := strings.NewReplacer(`\n`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return replacer.Replace(s)
}

// EventsOn filters events to those starting on the given calendar day in
// the day's location.
func EventsOn(events []Event, day time.Time) []Event {
	y, m, d := day.Date()
	var result []Event
	for _, ev := range events {
		start := ev.Start.In(day.Location())
		ey, em, ed := start.Date()
		if ey == y && em == m && ed == d {
			result = append(result, ev)
		}
	}
	return result
}
