package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/usecase"
)

const entryColumns = `id, account_name, transfer_id, amount::text, previous_balance::text, resulting_balance::text, created_at`

const (
	createEntry = `INSERT INTO entries (id, account_name, transfer_id, amount, previous_balance, resulting_balance, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getEntriesByTransfer = `SELECT ` + entryColumns + ` FROM entries WHERE transfer_id = $1 ORDER BY id`

	getEntriesByAccount = `SELECT ` + entryColumns + ` FROM entries WHERE account_name = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db querier
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{db: pool}
}

// Create creates a new entry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	q, err := mustWithin(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, createEntry,
		entry.ID,
		entry.AccountName,
		entry.TransferID,
		decimalToNumeric(entry.Amount),
		decimalToNumeric(entry.PreviousBalance),
		decimalToNumeric(entry.ResultingBalance),
		entry.CreatedAt,
	)

	return err
}

// GetByTransfer retrieves the entries of a transfer in creation order.
func (r *EntryRepository) GetByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error) {
	rows, err := r.db.Query(ctx, getEntriesByTransfer, transferID)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

// GetByAccount retrieves entries of an account, newest first.
func (r *EntryRepository) GetByAccount(ctx context.Context, accountName string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.db.Query(ctx, getEntriesByAccount, accountName, limit, offset)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	defer rows.Close()

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		var (
			e                         domain.Entry
			amount, previous, current string
		)

		if err := rows.Scan(&e.ID, &e.AccountName, &e.TransferID, &amount, &previous, &current, &e.CreatedAt); err != nil {
			return nil, err
		}

		var err error
		if e.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, err
		}
		if e.PreviousBalance, err = parseDecimal("previous_balance", previous); err != nil {
			return nil, err
		}
		if e.ResultingBalance, err = parseDecimal("resulting_balance", current); err != nil {
			return nil, err
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
