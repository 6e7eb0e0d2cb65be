package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// TransactionEvent announces a committed change to one transaction.
// Consumers re-read the record from storage; the event carries only identity.
type TransactionEvent struct {
	Type          EventType `json:"type"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Kind          core.Kind `json:"kind"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type:          typ,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Kind:          tx.Kind,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *TransactionEvent) Validate() error {
	switch e.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.TransactionID == "" || e.UserID == "" {
		return fmt.Errorf("event missing transaction or user id")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("event kind: %w", core.ErrInvalidKind)
	}
	return nil
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
