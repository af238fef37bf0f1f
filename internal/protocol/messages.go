package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType represents the type of message
type MessageType string

const (
	// Client to Server
	MsgTypeIdentify    MessageType = "identify"
	MsgTypeLogEvent    MessageType = "log_event"
	MsgTypeDeleteEvent MessageType = "delete_event"
	MsgTypeKeepalive   MessageType = "keepalive"

	// Server to Client
	MsgTypeAck MessageType = "ack"
)

// BaseMessage is the common structure for all messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// IdentifyMessage is sent by the phone client on connection
type IdentifyMessage struct {
	Type    MessageType `json:"type"`
	DogID   string      `json:"dog_id"`
	DogName string      `json:"dog_name"`
}

// EventData is one logged care event as entered on the client. PHValue
// keeps the comma-decimal formatting of the input field.
type EventData struct {
	ID        string   `json:"id,omitempty"` // assigned server-side when empty
	EventType string   `json:"event_type"`   // pipi, stuhlgang, phwert, gewicht
	Timestamp string   `json:"timestamp"`    // RFC3339
	PHValue   *string  `json:"ph_value,omitempty"`
	WeightKg  *float64 `json:"weight_kg,omitempty"`
}

// LogEventMessage is sent whenever the user logs an event
type LogEventMessage struct {
	Type MessageType `json:"type"`
	Data EventData   `json:"data"`
}

// DeleteEventMessage is sent on swipe-to-delete
type DeleteEventMessage struct {
	Type    MessageType `json:"type"`
	EventID string      `json:"event_id"`
}

// KeepaliveMessage is sent periodically while the app is in the foreground
type KeepaliveMessage struct {
	Type MessageType `json:"type"`
}

// AckMessage is sent by the server in response to messages
type AckMessage struct {
	Type   MessageType `json:"type"`
	Status string      `json:"status"`
}

// AckStatus constants
const (
	AckStatusIdentified = "identified"
	AckStatusLogged     = "logged"
	AckStatusDeleted    = "deleted"
	AckStatusAlive      = "alive"
	AckStatusError      = "error"
)

// ParseMessage parses a JSON line into the appropriate message type
func ParseMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch base.Type {
	case MsgTypeIdentify:
		var msg IdentifyMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid identify message: %w", err)
		}
		if err := validateIdentify(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeLogEvent:
		var msg LogEventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid log_event message: %w", err)
		}
		if err := validateLogEvent(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeDeleteEvent:
		var msg DeleteEventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid delete_event message: %w", err)
		}
		if msg.EventID == "" {
			return nil, fmt.Errorf("event_id is required")
		}
		return &msg, nil

	case MsgTypeKeepalive:
		var msg KeepaliveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid keepalive message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}
}

// validateIdentify validates an identify message
func validateIdentify(msg *IdentifyMessage) error {
	if msg.DogID == "" {
		return fmt.Errorf("dog_id is required")
	}
	if msg.DogName == "" {
		return fmt.Errorf("dog_name is required")
	}
	return nil
}

// validateLogEvent validates a log_event message
func validateLogEvent(msg *LogEventMessage) error {
	switch msg.Data.EventType {
	case "pipi", "stuhlgang", "phwert", "gewicht":
	default:
		return fmt.Errorf("unknown event_type: %s", msg.Data.EventType)
	}
	if msg.Data.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if _, err := time.Parse(time.RFC3339, msg.Data.Timestamp); err != nil {
		return fmt.Errorf("invalid timestamp format (must be RFC3339): %w", err)
	}
	if msg.Data.EventType == "gewicht" && msg.Data.WeightKg == nil {
		return fmt.Errorf("weight_kg is required for gewicht events")
	}
	if msg.Data.EventType == "phwert" && msg.Data.PHValue == nil {
		return fmt.Errorf("ph_value is required for phwert events")
	}
	return nil
}

// EncodeMessage encodes a message to JSON
func EncodeMessage(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// NewAckMessage creates a new acknowledgment message
func NewAckMessage(status string) *AckMessage {
	return &AckMessage{
		Type:   MsgTypeAck,
		Status: status,
	}
}
