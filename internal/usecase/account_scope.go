package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/iho/escrowledger/internal/domain"
)

// AccountScope is the account directory for a single transaction. Accounts it
// loads are cached until the transaction ends and are never shared with other
// transactions.
type AccountScope struct {
	repo  AccountRepository
	tx    Transaction
	cache map[string]*domain.Account
}

// NewAccountScope creates an empty scope bound to tx.
func NewAccountScope(repo AccountRepository, tx Transaction) *AccountScope {
	return &AccountScope{
		repo:  repo,
		tx:    tx,
		cache: make(map[string]*domain.Account),
	}
}

// Lock loads and row-locks the named accounts in name order. Names that do
// not exist are skipped; Find reports them.
func (s *AccountScope) Lock(ctx context.Context, names []string) error {
	sorted := uniqueSorted(names)

	accounts, err := s.repo.FindByNamesForUpdate(ctx, s.tx, sorted)
	if err != nil {
		return err
	}

	for _, a := range accounts {
		s.cache[a.Name] = a
	}

	return nil
}

// Find returns the named account, reading through to the repository on a
// cache miss. A missing account yields an error wrapping domain.ErrNotFound.
func (s *AccountScope) Find(ctx context.Context, name string) (*domain.Account, error) {
	if a, ok := s.cache[name]; ok {
		return a, nil
	}

	a, err := s.repo.FindByName(ctx, s.tx, name)
	if err != nil {
		return nil, err
	}

	s.cache[name] = a

	return a, nil
}

// Save persists account within the scope's transaction.
func (s *AccountScope) Save(ctx context.Context, account *domain.Account) error {
	if err := s.repo.Save(ctx, s.tx, account); err != nil {
		return err
	}

	s.cache[account.Name] = account

	return nil
}

// Transaction returns the transaction the scope is bound to.
func (s *AccountScope) Transaction() Transaction {
	return s.tx
}

// ValidateNoDisabledAccounts fails when any named account is missing or disabled.
func (s *AccountScope) ValidateNoDisabledAccounts(ctx context.Context, names []string) error {
	for _, name := range uniqueSorted(names) {
		a, err := s.Find(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: account %s does not exist", domain.ErrUnprocessableEntity, name)
		}
		if err != nil {
			return err
		}
		if a.IsDisabled {
			return fmt.Errorf("%w: account %s is disabled", domain.ErrUnprocessableEntity, name)
		}
	}

	return nil
}

func uniqueSorted(names []string) []string {
	seen := make(map[string]bool, len(names))

	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	sort.Strings(out)

	return out
}
