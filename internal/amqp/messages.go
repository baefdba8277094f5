package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event kinds carried on the wire.
const (
	EventRecorded = "recorded"
	EventRemoved  = "removed"
)

// LedgerEventMessage is a lightweight notification that a ledger entry changed.
// It carries only identifiers; the worker fetches full state from the database.
type LedgerEventMessage struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerRecordedMessage creates a message for a newly recorded entry
func NewLedgerRecordedMessage(id, vehicleID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:     EventRecorded,
		ID:        id,
		VehicleID: vehicleID,
		Timestamp: time.Now(),
	}
}

// NewLedgerRemovedMessage creates a message for a removed entry
func NewLedgerRemovedMessage(id, vehicleID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:     EventRemoved,
		ID:        id,
		VehicleID: vehicleID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
