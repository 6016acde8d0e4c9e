package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultHoldAccount is the escrow clearing account.
	DefaultHoldAccount = "hold"

	// DefaultAmountPrecision and DefaultAmountScale bound every amount.
	DefaultAmountPrecision = 10
	DefaultAmountScale     = 2

	// DefaultTransferCacheTTL is how long finalized transfers stay cached.
	DefaultTransferCacheTTL = time.Hour
)
