package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/anomaly"
	"github.com/mbehrens/kalle-tracker/internal/countdown"
	"github.com/mbehrens/kalle-tracker/internal/database"
	"github.com/mbehrens/kalle-tracker/internal/ical"
	"github.com/mbehrens/kalle-tracker/internal/protocol"
	"github.com/mbehrens/kalle-tracker/internal/queue"
	"github.com/mbehrens/kalle-tracker/internal/settings"
	"github.com/mbehrens/kalle-tracker/internal/stats"
	"github.com/mbehrens/kalle-tracker/internal/timer"
)

// Planner builds the daily walk plan and schedules one-shot reminders at
// future estimated break times.
type Planner struct {
	db            *database.DB
	settings      *settings.Store
	alertProducer *queue.Producer
	timerManager  *timer.Manager
	dogName       string
	calendarURL   string
	reminderLead  time.Duration
}

// NewPlanner creates a new day planner
func NewPlanner(
	db *database.DB,
	settingsStore *settings.Store,
	alertProducer *queue.Producer,
	timerManager *timer.Manager,
	dogName, calendarURL string,
	reminderLead time.Duration,
) *Planner {
	return &Planner{
		db:            db,
		settings:      settingsStore,
		alertProducer: alertProducer,
		timerManager:  timerManager,
		dogName:       dogName,
		calendarURL:   calendarURL,
		reminderLead:  reminderLead,
	}
}

// BuildTodayPlan synthesizes today's plan from the historical average,
// today's logged events and the calendar feed, then schedules reminders
// for the remaining future estimate slots.
func (p *Planner) BuildTodayPlan(ctx context.Context) ([]Slot, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// The weekend lookback is the longest window anyone needs.
	events, err := p.db.EventsSince(now.AddDate(0, 0, -WeekendLookbackDays))
	if err != nil {
		return nil, fmt.Errorf("failed to load event history: %w", err)
	}

	var todays []database.Event
	for _, e := range events {
		if !e.Time.Before(dayStart) {
			todays = append(todays, e)
		}
	}

	var calEvents []ical.Event
	if p.calendarURL != "" {
		all, err := ical.Fetch(p.calendarURL)
		if err != nil {
			fmt.Printf("Calendar feed unavailable, planning without it: %v\n", err)
		} else {
			calEvents = ical.EventsOn(all, now)
		}
	}

	hist := HistoricalHours(events, now, now)
	slots := BuildDaySlots(hist, todays, calEvents, true, HourOf(now))

	p.printPlan(slots)
	p.scheduleReminders(slots, dayStart)
	p.printCountdown(ctx, events, now)

	return slots, nil
}

func (p *Planner) printPlan(slots []Slot) {
	fmt.Printf("\n--- Tagesplan für %s ---\n", p.dogName)
	for _, s := range slots {
		label := FormatHour(s.AvgHour)
		if s.ExactTime != "" {
			label = s.ExactTime
		}
		marker := " "
		switch {
		case s.IsFutureEstimate:
			marker = "~"
		case s.IsEstimate:
			marker = "?"
		}
		poop := ""
		if s.HasPoop {
			poop = " 💩"
		}
		fmt.Printf("%s %s%s\n", marker, label, poop)
		for _, ref := range s.ICalEvents {
			fmt.Printf("    %s %s\n", ref.TimeStr, ref.Summary)
		}
	}
	fmt.Println("------------------------")
}

// scheduleReminders registers one reminder per future estimate slot,
// firing reminderLead before the estimated time. Rebuilding the plan
// reuses the same timer IDs, so stale reminders are replaced.
func (p *Planner) scheduleReminders(slots []Slot, dayStart time.Time) {
	for i, s := range slots {
		if !s.IsFutureEstimate {
			continue
		}

		slotTime := dayStart.Add(time.Duration(s.AvgHour * float64(time.Hour)))
		fireAt := slotTime.Add(-p.reminderLead)
		if fireAt.Before(time.Now()) {
			fireAt = time.Now()
		}

		timerID := fmt.Sprintf("walk-reminder-%d", i)
		timeStr := FormatHour(s.AvgHour)

		callback := func() {
			if err := p.publishReminder(timeStr, slotTime); err != nil {
				fmt.Printf("Failed to publish walk reminder: %v\n", err)
			}
		}

		if err := p.timerManager.Schedule(timerID, fireAt, callback); err != nil {
			fmt.Printf("Failed to schedule reminder: %v\n", err)
			continue
		}
		fmt.Printf("Reminder scheduled for %s (slot %s)\n", fireAt.Format("15:04"), timeStr)
	}
}

func (p *Planner) publishReminder(timeStr string, slotTime time.Time) error {
	notification := &protocol.AlertNotification{
		AnomalyID:   fmt.Sprintf("upcoming_break:%s", slotTime.Format("2006-01-02T15:04")),
		AnomalyType: string(anomaly.TypeUpcomingBreak),
		Severity:    string(anomaly.SeverityInfo),
		Title:       "Gleich Gassi-Zeit",
		Description: fmt.Sprintf("Geschätzte Pause um %s.", timeStr),
		DogName:     p.dogName,
		Timestamp:   time.Now(),
	}

	data, err := protocol.EncodeAlertNotification(notification)
	if err != nil {
		return fmt.Errorf("failed to encode reminder: %w", err)
	}

	return p.alertProducer.Publish(context.Background(), string(anomaly.TypeUpcomingBreak), data)
}

func (p *Planner) printCountdown(ctx context.Context, events []database.Event, now time.Time) {
	s, err := p.settings.Get(ctx)
	if err != nil {
		fmt.Printf("Settings unavailable, using defaults: %v\n", err)
	}

	lastBreak, ok := stats.LatestBreak(events)
	if !ok {
		return
	}

	st := countdown.Next(s, lastBreak.Time, now)
	fmt.Println(st.Format())
}
