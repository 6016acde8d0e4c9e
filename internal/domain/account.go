package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NegativeInfinity is the wire form of an unbounded minimum balance.
const NegativeInfinity = "-infinity"

// MinimumBalance is the lowest balance an account may reach. When Unbounded
// is set the account may be overdrawn without limit.
type MinimumBalance struct {
	Amount    decimal.Decimal
	Unbounded bool
}

// UnboundedMinimum returns a minimum balance that never rejects a debit.
func UnboundedMinimum() MinimumBalance {
	return MinimumBalance{Unbounded: true}
}

// MinimumOf returns a bounded minimum balance.
func MinimumOf(amount decimal.Decimal) MinimumBalance {
	return MinimumBalance{Amount: amount}
}

// ParseMinimumBalance parses a decimal string or "-infinity".
func ParseMinimumBalance(s string) (MinimumBalance, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, NegativeInfinity) {
		return UnboundedMinimum(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return MinimumBalance{}, fmt.Errorf("invalid minimum balance %q: %w", s, err)
	}
	return MinimumOf(d), nil
}

// Allows reports whether balance respects the minimum.
func (m MinimumBalance) Allows(balance decimal.Decimal) bool {
	return m.Unbounded || balance.GreaterThanOrEqual(m.Amount)
}

func (m MinimumBalance) String() string {
	if m.Unbounded {
		return NegativeInfinity
	}
	return m.Amount.String()
}

func (m MinimumBalance) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *MinimumBalance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMinimumBalance(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Account represents a named ledger account.
type Account struct {
	Name                  string
	Balance               decimal.Decimal
	MinimumAllowedBalance MinimumBalance
	IsDisabled            bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ValidateDebit checks that the account can be debited by amount without
// falling below its minimum allowed balance.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if !a.MinimumAllowedBalance.Allows(a.Balance.Sub(amount)) {
		return &InsufficientFundsError{Account: a.Name}
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return DifferenceDecimals(a.Balance, amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return SumDecimals(a.Balance, amount)
}
