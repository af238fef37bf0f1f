package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/anomaly"
	"github.com/mbehrens/kalle-tracker/internal/database"
	"github.com/mbehrens/kalle-tracker/internal/protocol"
	"github.com/mbehrens/kalle-tracker/internal/queue"
	"github.com/mbehrens/kalle-tracker/internal/settings"
)

// Evaluator re-runs anomaly detection whenever an event arrives and
// dispatches alerts for anomalies that have not been notified recently.
type Evaluator struct {
	db            *database.DB
	settings      *settings.Store
	notifyState   *NotifyState
	alertProducer *queue.Producer
	detector      *anomaly.Detector
	windowDays    int
}

// NewEvaluator creates a new anomaly evaluator
func NewEvaluator(db *database.DB, settingsStore *settings.Store, notifyState *NotifyState, alertProducer *queue.Producer, windowDays int) *Evaluator {
	return &Evaluator{
		db:            db,
		settings:      settingsStore,
		notifyState:   notifyState,
		alertProducer: alertProducer,
		detector:      anomaly.NewDetector(),
		windowDays:    windowDays,
	}
}

// EvaluateEvent runs a full detection pass triggered by one incoming
// event message. The detection itself always works on the whole recent
// history, not just the triggering event.
func (e *Evaluator) EvaluateEvent(ctx context.Context, msg *protocol.EventMessage) error {
	now := time.Now()

	events, err := e.db.EventsSince(now.AddDate(0, 0, -e.windowDays))
	if err != nil {
		return fmt.Errorf("failed to load event history: %w", err)
	}

	s, err := e.settings.Get(ctx)
	if err != nil {
		fmt.Printf("Settings unavailable, using defaults: %v\n", err)
	}

	anomalies := e.detector.Detect(events, s, now)

	for _, a := range anomalies {
		if err := e.dispatch(ctx, msg.DogName, a); err != nil {
			fmt.Printf("Failed to dispatch anomaly %s: %v\n", a.ID, err)
		}
	}

	return nil
}

// dispatch logs and publishes one anomaly unless the same dedup key was
// already notified within the suppression window.
func (e *Evaluator) dispatch(ctx context.Context, dogName string, a anomaly.Anomaly) error {
	fresh, err := e.notifyState.MarkIfNew(ctx, a.DedupKey())
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	fmt.Printf("🚨 ANOMALY: %s [%s] %s\n", a.Type, a.Severity, a.Title)

	entry := &database.AnomalyLog{
		AnomalyType: string(a.Type),
		Severity:    string(a.Severity),
		Title:       a.Title,
		Description: a.Description,
		TriggeredAt: a.Timestamp,
	}
	if a.RelatedEventID != "" {
		related := a.RelatedEventID
		entry.RelatedEventID = &related
	}

	if err := e.db.InsertAnomalyLog(entry); err != nil {
		return fmt.Errorf("failed to insert anomaly log: %w", err)
	}

	notification := &protocol.AlertNotification{
		AnomalyID:      a.ID,
		AnomalyType:    string(a.Type),
		Severity:       string(a.Severity),
		Title:          a.Title,
		Description:    a.Description,
		DogName:        dogName,
		RelatedEventID: a.RelatedEventID,
		Timestamp:      a.Timestamp,
	}

	data, err := protocol.EncodeAlertNotification(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	return e.alertProducer.Publish(ctx, string(a.Type), data)
}
