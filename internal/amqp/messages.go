package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names what happened to an expense line item.
type EventType string

const (
	EventRecorded EventType = "expense.recorded"
	EventUpdated  EventType = "expense.updated"
	EventDeleted  EventType = "expense.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventRecorded, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// ExpenseEvent is a lightweight notification about one line item.
// Consumers fetch the full record from the database by ID.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates an event stamped with the current time.
func NewExpenseEvent(typ EventType, userID, id string, version int64) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      typ,
		ID:        id,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes an event and rejects unknown types or a
// missing id.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("event %s without id", ev.Type)
	}
	return &ev, nil
}
