package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iho/escrowledger/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when entries do not net to zero or an
	// account balance disagrees with its entries.
	ErrInconsistentLedger = errors.New("ledger is inconsistent")
)

// ConsistencyReport is the outcome of a ledger consistency check.
type ConsistencyReport struct {
	Consistent bool                     `json:"consistent"`
	EntryTotal decimal.Decimal          `json:"entry_total"`
	Mismatches []domain.BalanceMismatch `json:"mismatches,omitempty"`
}

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// CheckConsistency verifies that every transfer moved as much as it took and
// that each account balance matches the latest entry recorded for it. An
// inconsistent ledger returns the report together with ErrInconsistentLedger.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	total, err := uc.ledgerRepo.SumEntries(ctx)
	if err != nil {
		return nil, err
	}

	mismatches, err := uc.ledgerRepo.FindBalanceMismatches(ctx)
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		Consistent: total.IsZero() && len(mismatches) == 0,
		EntryTotal: total,
		Mismatches: mismatches,
	}

	if !report.Consistent {
		return report, ErrInconsistentLedger
	}

	return report, nil
}
