package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"pocketmoney/internal/core"
)

// EventTransactionCommitted is the only event type published today.
const EventTransactionCommitted = "transaction.committed"

// LedgerEvent announces one committed ledger entry.
type LedgerEvent struct {
	Type          string    `json:"type"`
	AccountID     string    `json:"account_id"`
	AccountName   string    `json:"account_name,omitempty"`
	TransactionID int64     `json:"transaction_id"`
	AmountCents   int64     `json:"amount_cents"`
	Description   string    `json:"description"`
	Kind          string    `json:"kind"`
	Category      string    `json:"category,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(t core.Transaction, accountName string) *LedgerEvent {
	return &LedgerEvent{
		Type:          EventTransactionCommitted,
		AccountID:     string(t.AccountID),
		AccountName:   accountName,
		TransactionID: int64(t.ID),
		AmountCents:   t.Amount.Cents,
		Description:   t.Description,
		Kind:          string(t.Kind),
		Category:      t.Category,
		Timestamp:     t.Timestamp,
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" || e.AccountID == "" || e.TransactionID <= 0 {
		return nil, fmt.Errorf("incomplete ledger event: type=%q account=%q id=%d", e.Type, e.AccountID, e.TransactionID)
	}
	return &e, nil
}

// Amount returns the signed amount of the event.
func (e *LedgerEvent) Amount() core.Money {
	return core.Cents(e.AmountCents)
}
