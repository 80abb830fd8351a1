package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TransactionCreated EventType = "transaction.created"
	TransactionDeleted EventType = "transaction.deleted"
	// LedgerResync asks consumers to rebuild a user's year without a
	// specific transaction behind it.
	LedgerResync EventType = "ledger.resync"
)

type EventType string

// LedgerEvent tells consumers that a user's ledger for Year changed. It
// carries identifiers only; consumers reload what they need from the store.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	UserID        string    `json:"user_id"`
	Year          int       `json:"year"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(t EventType, transactionID, userID string, year int) *LedgerEvent {
	return &LedgerEvent{
		Type:          t,
		TransactionID: transactionID,
		UserID:        userID,
		Year:          year,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *LedgerEvent) Validate() error {
	switch e.Type {
	case TransactionCreated, TransactionDeleted, LedgerResync:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.UserID == "" {
		return errors.New("event without user_id")
	}
	if e.Year <= 0 {
		return fmt.Errorf("invalid year %d", e.Year)
	}
	return nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
