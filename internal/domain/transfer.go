package domain

import (
	"fmt"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// TransferState is the position of a transfer in its lifecycle.
type TransferState string

const (
	TransferStateNonexistent TransferState = "nonexistent"
	TransferStateProposed    TransferState = "proposed"
	TransferStatePrepared    TransferState = "prepared"
	TransferStateExecuted    TransferState = "executed"
	TransferStateRejected    TransferState = "rejected"
)

// Rejection reasons.
const (
	RejectionReasonCancelled = "cancelled"
	RejectionReasonExpired   = "expired"
)

// IsValid reports whether s is a known state, including nonexistent.
func (s TransferState) IsValid() bool {
	switch s {
	case TransferStateNonexistent, TransferStateProposed, TransferStatePrepared,
		TransferStateExecuted, TransferStateRejected:
		return true
	}
	return false
}

// IsFinal reports whether no further transition is possible from s.
func (s TransferState) IsFinal() bool {
	return s == TransferStateExecuted || s == TransferStateRejected
}

// Valid source states for the two fulfillment branches.
var (
	ValidExecutionStates    = []TransferState{TransferStatePrepared}
	ValidCancellationStates = []TransferState{TransferStateProposed, TransferStatePrepared}
)

// Funds is a single debit or credit line.
type Funds struct {
	Account    string          `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	Authorized bool            `json:"authorized,omitempty"`
	Memo       map[string]any  `json:"memo,omitempty"`
}

// Timeline records when each state was entered. Timestamps are set once.
type Timeline struct {
	ProposedAt *time.Time `json:"proposed_at,omitempty"`
	PreparedAt *time.Time `json:"prepared_at,omitempty"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
}

// Transfer moves value from the debited accounts to the credited accounts,
// optionally gated by execution and cancellation conditions.
type Transfer struct {
	ID                               string         `json:"id"`
	Ledger                           string         `json:"ledger,omitempty"`
	Debits                           []Funds        `json:"debits"`
	Credits                          []Funds        `json:"credits"`
	ExecutionCondition               *Condition     `json:"execution_condition,omitempty"`
	CancellationCondition            *Condition     `json:"cancellation_condition,omitempty"`
	ExecutionConditionFulfillment    *Fulfillment   `json:"execution_condition_fulfillment,omitempty"`
	CancellationConditionFulfillment *Fulfillment   `json:"cancellation_condition_fulfillment,omitempty"`
	ExpiresAt                        *time.Time     `json:"expires_at,omitempty"`
	State                            TransferState  `json:"state,omitempty"`
	RejectionReason                  string         `json:"rejection_reason,omitempty"`
	Timeline                         Timeline       `json:"timeline"`
	Memo                             map[string]any `json:"memo,omitempty"`
}

// ValidateShape checks the parts of a transfer that do not depend on storage.
func (t *Transfer) ValidateShape() error {
	err := validation.ValidateStruct(t,
		validation.Field(&t.ID, validation.Required.Error("transfer id is required")),
		validation.Field(&t.Debits,
			validation.Required.Error("at least one debit is required"),
			validation.Each(validation.By(fundsAccount))),
		validation.Field(&t.Credits,
			validation.Required.Error("at least one credit is required"),
			validation.Each(validation.By(fundsAccount))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}

// ValidateAmounts checks that every amount is positive and within precision,
// and that debits and credits balance.
func (t *Transfer) ValidateAmounts(precision, scale int) error {
	for _, f := range t.Debits {
		if err := ValidateAmount(f.Amount, precision, scale); err != nil {
			return err
		}
	}
	for _, f := range t.Credits {
		if err := ValidateAmount(f.Amount, precision, scale); err != nil {
			return err
		}
	}
	if !t.TotalDebits().Equal(t.TotalCredits()) {
		return fmt.Errorf("%w: total credits must equal total debits", ErrUnprocessableEntity)
	}
	return nil
}

// TotalDebits returns the exact sum of all debit amounts.
func (t *Transfer) TotalDebits() decimal.Decimal {
	return sumFunds(t.Debits)
}

// TotalCredits returns the exact sum of all credit amounts.
func (t *Transfer) TotalCredits() decimal.Decimal {
	return sumFunds(t.Credits)
}

func sumFunds(funds []Funds) decimal.Decimal {
	amounts := make([]decimal.Decimal, len(funds))
	for i, f := range funds {
		amounts[i] = f.Amount
	}
	return SumDecimals(amounts...)
}

// IsFinalized reports whether the transfer reached a terminal state.
func (t *Transfer) IsFinalized() bool {
	return t.State.IsFinal()
}

// IsAuthorized reports whether every debit (and, if required, every credit)
// has been authorized.
func (t *Transfer) IsAuthorized(requireCredits bool) bool {
	for _, f := range t.Debits {
		if !f.Authorized {
			return false
		}
	}
	if requireCredits {
		for _, f := range t.Credits {
			if !f.Authorized {
				return false
			}
		}
	}
	return true
}

// SetState moves the transfer to state and stamps the matching timeline entry
// unless it was stamped before.
func (t *Transfer) SetState(state TransferState, at time.Time) {
	t.State = state
	stamp := func(p **time.Time) {
		if *p == nil {
			ts := at
			*p = &ts
		}
	}
	switch state {
	case TransferStateProposed:
		stamp(&t.Timeline.ProposedAt)
	case TransferStatePrepared:
		stamp(&t.Timeline.PreparedAt)
	case TransferStateExecuted:
		stamp(&t.Timeline.ExecutedAt)
	case TransferStateRejected:
		stamp(&t.Timeline.RejectedAt)
	}
}

// AffectedAccounts returns the sorted, de-duplicated account names on the transfer.
func (t *Transfer) AffectedAccounts() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range t.Debits {
		if !seen[f.Account] {
			seen[f.Account] = true
			names = append(names, f.Account)
		}
	}
	for _, f := range t.Credits {
		if !seen[f.Account] {
			seen[f.Account] = true
			names = append(names, f.Account)
		}
	}
	sort.Strings(names)
	return names
}

// IsAffectedAccount reports whether name appears on any debit or credit.
func (t *Transfer) IsAffectedAccount(name string) bool {
	for _, f := range t.Debits {
		if f.Account == name {
			return true
		}
	}
	for _, f := range t.Credits {
		if f.Account == name {
			return true
		}
	}
	return false
}

// IsExpiredAt reports whether the transfer has a deadline at or before now.
func (t *Transfer) IsExpiredAt(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Clone returns a deep copy.
func (t *Transfer) Clone() *Transfer {
	if t == nil {
		return nil
	}
	c := *t
	c.Debits = cloneFunds(t.Debits)
	c.Credits = cloneFunds(t.Credits)
	c.ExecutionCondition = t.ExecutionCondition.Clone()
	c.CancellationCondition = t.CancellationCondition.Clone()
	c.ExecutionConditionFulfillment = t.ExecutionConditionFulfillment.Clone()
	c.CancellationConditionFulfillment = t.CancellationConditionFulfillment.Clone()
	c.ExpiresAt = cloneTime(t.ExpiresAt)
	c.Timeline = Timeline{
		ProposedAt: cloneTime(t.Timeline.ProposedAt),
		PreparedAt: cloneTime(t.Timeline.PreparedAt),
		ExecutedAt: cloneTime(t.Timeline.ExecutedAt),
		RejectedAt: cloneTime(t.Timeline.RejectedAt),
	}
	c.Memo = cloneMap(t.Memo)
	return &c
}

func cloneFunds(funds []Funds) []Funds {
	if funds == nil {
		return nil
	}
	out := make([]Funds, len(funds))
	for i, f := range funds {
		out[i] = f
		out[i].Memo = cloneMap(f.Memo)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
