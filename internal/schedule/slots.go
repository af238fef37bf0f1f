package schedule

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mbehrens/kalle-tracker/internal/database"
	"github.com/mbehrens/kalle-tracker/internal/ical"
)

const (
	// ClusterGapHours is the maximum gap between successive historical
	// points that still belong to the same estimated slot.
	ClusterGapHours = 1.5

	// MatchWindowHours is how far an estimated slot may sit from a real
	// logged event and still be considered the same walk.
	MatchWindowHours = 2.0
)

// ICalRef is a calendar entry attached to a slot for display.
type ICalRef struct {
	Summary string
	TimeStr string // "15:04"
}

// Slot is one row of the day plan. Rebuilt from scratch on every call,
// never mutated after being returned.
type Slot struct {
	AvgHour          float64
	HasPoop          bool
	IsWalk           bool
	ICalEvents       []ICalRef
	IsEstimate       bool
	IsFutureEstimate bool
	ExactTime        string // "H:MM", set for real slots only
}

// FormatHour renders a fractional hour as "H:MM".
func FormatHour(hour float64) string {
	h := int(hour)
	m := int(math.Round((hour - float64(h)) * 60))
	if m == 60 {
		h++
		m = 0
	}
	return fmt.Sprintf("%d:%02d", h, m)
}

// clusterEstimates greedily groups historical points into estimated
// slots: a point within ClusterGapHours of the previous point joins its
// cluster. Input must be sorted ascending; the grouping is then fully
// deterministic.
func clusterEstimates(points []HistPoint) []Slot {
	var slots []Slot
	var sum float64
	var count int
	var poop bool
	var lastHour float64

	flush := func() {
		if count == 0 {
			return
		}
		slots = append(slots, Slot{
			AvgHour:    sum / float64(count),
			HasPoop:    poop,
			IsWalk:     true,
			IsEstimate: true,
		})
		sum, count, poop = 0, 0, false
	}

	for _, p := range points {
		if count > 0 && p.Hour-lastHour > ClusterGapHours {
			flush()
		}
		sum += p.Hour
		count++
		poop = poop || p.Poop
		lastHour = p.Hour
	}
	flush()

	return slots
}

// BuildDaySlots synthesizes the day plan: estimated slots from the
// historical average, reconciled with the day's real logged events, with
// calendar entries attached to the nearest slot.
//
// isToday changes how unmatched estimates are treated: future ones are
// kept de-emphasized, past ones are dropped (they did not happen and no
// longer will). For past or future days all unmatched estimates are kept.
func BuildDaySlots(hist []HistPoint, realEvents []database.Event, calEvents []ical.Event, isToday bool, nowHour float64) []Slot {
	estimates := clusterEstimates(hist)

	var slots []Slot
	for _, e := range realEvents {
		if !e.Type.IsBreak() {
			continue
		}
		hour := HourOf(e.Time)
		slots = append(slots, Slot{
			AvgHour:   hour,
			HasPoop:   e.Type == database.EventStuhlgang,
			IsWalk:    true,
			ExactTime: FormatHour(hour),
		})
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].AvgHour < slots[j].AvgHour })

	// Greedy nearest-neighbor matching, estimates in ascending order,
	// distance ties broken by the earliest real slot. Each side is used
	// at most once; a matched estimate is replaced by the real entry.
	matched := make([]bool, len(slots))
	for _, est := range estimates {
		best := -1
		bestDist := math.Inf(1)
		for j, rs := range slots {
			if matched[j] {
				continue
			}
			dist := math.Abs(rs.AvgHour - est.AvgHour)
			if dist <= MatchWindowHours && dist < bestDist {
				best = j
				bestDist = dist
			}
		}
		if best >= 0 {
			matched[best] = true
			continue
		}

		if isToday {
			if est.AvgHour > nowHour {
				est.IsFutureEstimate = true
				slots = append(slots, est)
			}
			// Past unmatched estimates for today are dropped.
			continue
		}
		slots = append(slots, est)
	}

	slots = attachCalendarEvents(slots, calEvents)

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].AvgHour < slots[j].AvgHour })
	return slots
}

// attachCalendarEvents appends each calendar entry to the nearest slot by
// hour distance. Ownership-transfer entries ("... hat Kalle") are not
// part of the walk plan and are skipped. With no slots at all, a
// standalone non-walk slot is created to hold the entry.
func attachCalendarEvents(slots []Slot, calEvents []ical.Event) []Slot {
	for _, ev := range calEvents {
		if strings.Contains(ev.Summary, "hat Kalle") {
			continue
		}

		hour := HourOf(ev.Start)
		ref := ICalRef{Summary: ev.Summary, TimeStr: ev.Start.Format("15:04")}

		if len(slots) == 0 {
			slots = append(slots, Slot{
				AvgHour:    hour,
				IsWalk:     false,
				ICalEvents: []ICalRef{ref},
			})
			continue
		}

		best := 0
		bestDist := math.Abs(slots[0].AvgHour - hour)
		for j := 1; j < len(slots); j++ {
			dist := math.Abs(slots[j].AvgHour - hour)
			if dist < bestDist {
				best = j
				bestDist = dist
			}
		}
		slots[best].ICalEvents = append(slots[best].ICalEvents, ref)
	}
	return slots
}
