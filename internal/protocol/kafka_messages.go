package protocol

import (
	"encoding/json"
	"time"

	"github.com/mbehrens/kalle-tracker/internal/database"
)

// EventMessage is the internal message format for the event topic
type EventMessage struct {
	ConnectionID string    `json:"connection_id"`
	DogID        string    `json:"dog_id"`
	DogName      string    `json:"dog_name"`
	ReceivedAt   time.Time `json:"received_at"`
	Deleted      bool      `json:"deleted,omitempty"` // true for swipe-to-delete
	Data         EventData `json:"data"`
}

// ToEvent converts the wire payload to a database event.
func (m *EventMessage) ToEvent() (*database.Event, error) {
	ts, err := time.Parse(time.RFC3339, m.Data.Timestamp)
	if err != nil {
		return nil, err
	}

	return &database.Event{
		ID:         m.Data.ID,
		Type:       database.EventType(m.Data.EventType),
		Time:       ts,
		PHValue:    m.Data.PHValue,
		WeightKg:   m.Data.WeightKg,
		ReceivedAt: m.ReceivedAt,
	}, nil
}

// AlertNotification is the message format for the alert topic
type AlertNotification struct {
	AnomalyID      string    `json:"anomaly_id"`
	AnomalyType    string    `json:"anomaly_type"`
	Severity       string    `json:"severity"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DogName        string    `json:"dog_name"`
	RelatedEventID string    `json:"related_event_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// EncodeEventMessage encodes an EventMessage to JSON
func EncodeEventMessage(msg *EventMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeEventMessage decodes JSON to EventMessage
func DecodeEventMessage(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodeAlertNotification encodes an AlertNotification to JSON
func EncodeAlertNotification(alert *AlertNotification) ([]byte, error) {
	return json.Marshal(alert)
}

// DecodeAlertNotification decodes JSON to AlertNotification
func DecodeAlertNotification(data []byte) (*AlertNotification, error) {
	var alert AlertNotification
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}
