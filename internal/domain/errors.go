package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the ledger core wraps exactly one of them.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidBody         = errors.New("invalid body")
	ErrInvalidModification = errors.New("invalid modification")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrUnmetCondition      = errors.New("unmet condition")

	// ErrMissingHoldAccount means the ledger is misconfigured. It is never retried.
	ErrMissingHoldAccount = errors.New(`missing "hold" account`)
)

// Common not-found errors.
var (
	ErrTransferNotFound    = fmt.Errorf("%w: unknown transfer ID", ErrNotFound)
	ErrFulfillmentNotFound = fmt.Errorf("%w: this transfer has no fulfillment", ErrNotFound)
)

// InsufficientFundsError names the account whose minimum balance would be breached.
type InsufficientFundsError struct {
	Account string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("sender has insufficient funds: %s", e.Account)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// InvalidModificationError carries the fields a client tried to change.
type InvalidModificationError struct {
	Message string
	Diff    []FieldChange
}

func (e *InvalidModificationError) Error() string {
	if len(e.Diff) == 0 {
		return e.Message
	}
	paths := make([]string, len(e.Diff))
	for i, c := range e.Diff {
		paths[i] = c.Path
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(paths, ", "))
}

func (e *InvalidModificationError) Unwrap() error {
	return ErrInvalidModification
}

// Kind returns the error kind err wraps, or nil if it wraps none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrInvalidBody,
		ErrInvalidModification,
		ErrUnauthorized,
		ErrUnprocessableEntity,
		ErrInsufficientFunds,
		ErrUnmetCondition,
		ErrMissingHoldAccount,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
