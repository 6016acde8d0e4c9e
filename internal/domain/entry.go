package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is an immutable record of a balance change caused by a transfer.
type Entry struct {
	CreatedAt        time.Time
	ID               string
	AccountName      string
	TransferID       string
	Amount           decimal.Decimal
	PreviousBalance  decimal.Decimal
	ResultingBalance decimal.Decimal
}

// BalanceMismatch is an account whose balance disagrees with the resulting
// balance of its latest entry.
type BalanceMismatch struct {
	Account      string          `json:"account"`
	Balance      decimal.Decimal `json:"balance"`
	EntryBalance decimal.Decimal `json:"entry_balance"`
}
