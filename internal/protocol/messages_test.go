package protocol

import (
	"testing"
)

func TestParseMessage_Identify(t *testing.T) {
	data := []byte(`{"type":"identify","dog_id":"kalle","dog_name":"Kalle"}`)

	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	identify, ok := msg.(*IdentifyMessage)
	if !ok {
		t.Fatalf("Expected IdentifyMessage, got %T", msg)
	}
	if identify.DogID != "kalle" {
		t.Errorf("Expected dog_id kalle, got %s", identify.DogID)
	}
}

func TestParseMessage_IdentifyMissingDogID(t *testing.T) {
	data := []byte(`{"type":"identify","dog_name":"Kalle"}`)

	if _, err := ParseMessage(data); err == nil {
		t.Error("Expected error for missing dog_id")
	}
}

func TestParseMessage_LogEvent(t *testing.T) {
	data := []byte(`{"type":"log_event","data":{"event_type":"pipi","timestamp":"2025-06-02T10:00:00Z"}}`)

	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	logEvent, ok := msg.(*LogEventMessage)
	if !ok {
		t.Fatalf("Expected LogEventMessage, got %T", msg)
	}
	if logEvent.Data.EventType != "pipi" {
		t.Errorf("Expected event_type pipi, got %s", logEvent.Data.EventType)
	}
}

func TestParseMessage_LogEventWeightRequiresValue(t *testing.T) {
	data := []byte(`{"type":"log_event","data":{"event_type":"gewicht","timestamp":"2025-06-02T10:00:00Z"}}`)

	if _, err := ParseMessage(data); err == nil {
		t.Error("Expected error for gewicht event without weight_kg")
	}
}

func TestParseMessage_LogEventPHRequiresValue(t *testing.T) {
	data := []byte(`{"type":"log_event","data":{"event_type":"phwert","timestamp":"2025-06-02T10:00:00Z"}}`)

	if _, err := ParseMessage(data); err == nil {
		t.Error("Expected error for phwert event without ph_value")
	}
}

func TestParseMessage_LogEventCommaDecimalPH(t *testing.T) {
	data := []byte(`{"type":"log_event","data":{"event_type":"phwert","timestamp":"2025-06-02T10:00:00Z","ph_value":"6,8"}}`)

	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	logEvent := msg.(*LogEventMessage)
	if logEvent.Data.PHValue == nil || *logEvent.Data.PHValue != "6,8" {
		t.Error("Comma-decimal pH value should pass through unchanged")
	}
}

func TestParseMessage_LogEventBadTimestamp(t *testing.T) {
	data := []byte(`{"type":"log_event","data":{"event_type":"pipi","timestamp":"yesterday"}}`)

	if _, err := ParseMessage(data); err == nil {
		t.Error("Expected error for non-RFC3339 timestamp")
	}
}

func TestParseMessage_LogEventUnknownType(t *testing.T) {
	data := []byte(`{"type":"log_event","data":{"event_type":"zoomies","timestamp":"2025-06-02T10:00:00Z"}}`)

	if _, err := ParseMessage(data); err == nil {
		t.Error("Expected error for unknown event type")
	}
}

func TestParseMessage_DeleteEvent(t *testing.T) {
	data := []byte(`{"type":"delete_event","event_id":"abc-123"}`)

	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	del, ok := msg.(*DeleteEventMessage)
	if !ok {
		t.Fatalf("Expected DeleteEventMessage, got %T", msg)
	}
	if del.EventID != "abc-123" {
		t.Errorf("Expected event_id abc-123, got %s", del.EventID)
	}
}

func TestParseMessage_DeleteEventMissingID(t *testing.T) {
	data := []byte(`{"type":"delete_event"}`)

	if _, err := ParseMessage(data); err == nil {
		t.Error("Expected error for missing event_id")
	}
}

func TestParseMessage_UnknownType(t *testing.T) {
	data := []byte(`{"type":"bark"}`)

	if _, err := ParseMessage(data); err == nil {
		t.Error("Expected error for unknown message type")
	}
}

func TestParseMessage_InvalidJSON(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestEventMessageRoundTrip(t *testing.T) {
	weight := 10.5
	msg := &EventMessage{
		ConnectionID: "conn1",
		DogID:        "kalle",
		DogName:      "Kalle",
		Data: EventData{
			ID:        "evt-1",
			EventType: "gewicht",
			Timestamp: "2025-06-02T10:00:00Z",
			WeightKg:  &weight,
		},
	}

	data, err := EncodeEventMessage(msg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeEventMessage(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	event, err := decoded.ToEvent()
	if err != nil {
		t.Fatalf("ToEvent failed: %v", err)
	}
	if event.ID != "evt-1" {
		t.Errorf("Expected event ID evt-1, got %s", event.ID)
	}
	if event.WeightKg == nil || *event.WeightKg != 10.5 {
		t.Error("Weight was not preserved")
	}
}

func TestEventMessage_ToEventBadTimestamp(t *testing.T) {
	msg := &EventMessage{
		Data: EventData{ID: "evt-1", EventType: "pipi", Timestamp: "garbage"},
	}

	if _, err := msg.ToEvent(); err == nil {
		t.Error("Expected error for malformed timestamp")
	}
}
