package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/escrowledger/internal/domain"
)

const (
	sumEntries = `SELECT COALESCE(SUM(amount), 0)::text FROM entries`

	findBalanceMismatches = `SELECT a.name, a.balance::text, e.resulting_balance::text
FROM accounts a
JOIN LATERAL (
	SELECT resulting_balance FROM entries WHERE account_name = a.name ORDER BY id DESC LIMIT 1
) e ON true
WHERE a.balance <> e.resulting_balance
ORDER BY a.name`
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db querier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: pool}
}

// SumEntries returns the total of all entry amounts.
func (r *LedgerRepository) SumEntries(ctx context.Context) (decimal.Decimal, error) {
	var total string
	if err := r.db.QueryRow(ctx, sumEntries).Scan(&total); err != nil {
		return decimal.Zero, err
	}

	return parseDecimal("total", total)
}

// FindBalanceMismatches lists accounts whose balance differs from their
// latest entry.
func (r *LedgerRepository) FindBalanceMismatches(ctx context.Context) ([]domain.BalanceMismatch, error) {
	rows, err := r.db.Query(ctx, findBalanceMismatches)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mismatches []domain.BalanceMismatch
	for rows.Next() {
		var (
			m                     domain.BalanceMismatch
			balance, entryBalance string
		)

		if err := rows.Scan(&m.Account, &balance, &entryBalance); err != nil {
			return nil, err
		}

		if m.Balance, err = parseDecimal("balance", balance); err != nil {
			return nil, err
		}
		if m.EntryBalance, err = parseDecimal("resulting_balance", entryBalance); err != nil {
			return nil, err
		}

		mismatches = append(mismatches, m)
	}

	return mismatches, rows.Err()
}
