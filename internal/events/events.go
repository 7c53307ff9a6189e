// Package events publishes ledger changes to interested consumers.
// Publishing is fire-and-forget from the ledger's point of view: a failed
// publish is logged by the caller and never rolls back the ledger write.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event types, also used as routing keys.
const (
	TypeTransactionCreated = "transaction.created"
	TypeTransactionDeleted = "transaction.deleted"
)

// LedgerEvent describes one transaction row that was created or deleted.
type LedgerEvent struct {
	Type               string          `json:"type"`
	TransactionID      uint            `json:"transactionId"`
	CategoryID         uint            `json:"categoryId"`
	Amount             decimal.Decimal `json:"amount"`
	AddedBy            string          `json:"addedBy,omitempty"`
	InstallmentGroupID *string         `json:"installmentGroupId,omitempty"`
	OccurredAt         time.Time       `json:"occurredAt"`
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers ledger events.
type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }
func (NopPublisher) Close() error                               { return nil }
