package amqp

import (
	"testing"
	"time"

	"pocketmoney/internal/core"
)

func TestLedgerEvent_JSON(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tx := core.Transaction{ID: 42, AccountID: "c1", Amount: core.Cents(-250), Description: "Ice cream", Kind: core.Spend, Category: "Food", Timestamp: ts}

	data, err := NewLedgerEvent(tx, "Leo").ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	got, err := LedgerEventFromJSON(data)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON() error = %v", err)
	}
	if got.Type != EventTransactionCommitted || got.TransactionID != 42 || got.AccountName != "Leo" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.Amount() != core.Cents(-250) || !got.Timestamp.Equal(ts) {
		t.Errorf("amount/timestamp mismatch: %+v", got)
	}
}

func TestLedgerEventFromJSON_Invalid(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"type":"transaction.committed","account_id":"c1"}`} {
		if _, err := LedgerEventFromJSON([]byte(body)); err == nil {
			t.Errorf("LedgerEventFromJSON(%s) expected error", body)
		}
	}
}
