package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/usecase"
)

const accountColumns = `name, balance::text, COALESCE(minimum_allowed_balance::text, '-infinity'), is_disabled, created_at, updated_at`

const (
	findAccountByName = `SELECT ` + accountColumns + ` FROM accounts WHERE name = $1`

	findAccountsForUpdate = `SELECT ` + accountColumns + `
FROM accounts
WHERE name = ANY($1)
ORDER BY name
FOR UPDATE`

	upsertAccount = `INSERT INTO accounts (name, balance, minimum_allowed_balance, is_disabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET
	balance = EXCLUDED.balance,
	minimum_allowed_balance = EXCLUDED.minimum_allowed_balance,
	is_disabled = EXCLUDED.is_disabled,
	updated_at = EXCLUDED.updated_at`
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db  querier
	now func() time.Time
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db querier) *AccountRepository {
	return &AccountRepository{db: db, now: time.Now}
}

// FindByName retrieves an account, inside tx when it is non-nil.
func (r *AccountRepository) FindByName(ctx context.Context, tx usecase.Transaction, name string) (*domain.Account, error) {
	q, err := within(tx, r.db)
	if err != nil {
		return nil, err
	}

	account, err := scanAccount(q.QueryRow(ctx, findAccountByName, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, name)
	}

	return account, err
}

// FindByNamesForUpdate locks the named accounts in name order.
func (r *AccountRepository) FindByNamesForUpdate(ctx context.Context, tx usecase.Transaction, names []string) ([]*domain.Account, error) {
	q, err := mustWithin(tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, findAccountsForUpdate, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, len(names))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// Save writes the account's balance and settings.
func (r *AccountRepository) Save(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	q, err := mustWithin(tx)
	if err != nil {
		return err
	}

	now := r.now().UTC()
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = q.Exec(ctx, upsertAccount,
		account.Name,
		decimalToNumeric(account.Balance),
		minimumToNumeric(account.MinimumAllowedBalance),
		account.IsDisabled,
		createdAt,
		now,
	)

	return err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a                domain.Account
		balance, minimum string
	)

	if err := row.Scan(&a.Name, &balance, &minimum, &a.IsDisabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if a.Balance, err = parseDecimal("balance", balance); err != nil {
		return nil, err
	}
	if a.MinimumAllowedBalance, err = domain.ParseMinimumBalance(minimum); err != nil {
		return nil, err
	}

	return &a, nil
}
