package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/escrowledger/internal/domain"
)

type accountTotal struct {
	name  string
	total decimal.Decimal
}

// AccountBalances applies the escrow movements of one transfer. Debits move
// funds from senders into the hold account; credits move them from the hold
// account to recipients.
type AccountBalances struct {
	scope       *AccountScope
	entryRepo   EntryRepository
	idGen       IDGenerator
	holdAccount string
	transferID  string
	debits      []accountTotal
	credits     []accountTotal
	now         time.Time
	logger      zerolog.Logger
}

// NewAccountBalances groups the transfer's debits and credits by account.
func NewAccountBalances(
	scope *AccountScope,
	entryRepo EntryRepository,
	idGen IDGenerator,
	holdAccount string,
	transfer *domain.Transfer,
	now time.Time,
	logger zerolog.Logger,
) *AccountBalances {
	return &AccountBalances{
		scope:       scope,
		entryRepo:   entryRepo,
		idGen:       idGen,
		holdAccount: holdAccount,
		transferID:  transfer.ID,
		debits:      groupByAccount(transfer.Debits),
		credits:     groupByAccount(transfer.Credits),
		now:         now,
		logger:      logger,
	}
}

// groupByAccount sums amounts per account and sorts the result by name.
func groupByAccount(funds []domain.Funds) []accountTotal {
	totals := make(map[string]decimal.Decimal)

	var names []string
	for _, f := range funds {
		if _, ok := totals[f.Account]; !ok {
			names = append(names, f.Account)
		}
		totals[f.Account] = domain.SumDecimals(totals[f.Account], f.Amount)
	}

	names = uniqueSorted(names)

	out := make([]accountTotal, len(names))
	for i, n := range names {
		out[i] = accountTotal{name: n, total: totals[n]}
	}

	return out
}

// ApplyDebits checks every debited account against its minimum balance and,
// if all pass, moves the debited totals into the hold account.
func (b *AccountBalances) ApplyDebits(ctx context.Context) error {
	accounts, err := b.load(ctx, b.debits)
	if err != nil {
		return err
	}

	for i, d := range b.debits {
		if err := accounts[i].ValidateDebit(d.total); err != nil {
			return err
		}
	}

	return b.move(ctx, b.debits, accounts, true)
}

// ApplyCredits pays the credited totals out of the hold account.
func (b *AccountBalances) ApplyCredits(ctx context.Context) error {
	accounts, err := b.load(ctx, b.credits)
	if err != nil {
		return err
	}

	return b.move(ctx, b.credits, accounts, false)
}

// RevertDebits refunds the debited totals from the hold account.
func (b *AccountBalances) RevertDebits(ctx context.Context) error {
	accounts, err := b.load(ctx, b.debits)
	if err != nil {
		return err
	}

	return b.move(ctx, b.debits, accounts, false)
}

func (b *AccountBalances) load(ctx context.Context, totals []accountTotal) ([]*domain.Account, error) {
	accounts := make([]*domain.Account, len(totals))

	for i, t := range totals {
		a, err := b.scope.Find(ctx, t.name)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %s does not exist", domain.ErrUnprocessableEntity, t.name)
		}
		if err != nil {
			return nil, err
		}
		accounts[i] = a
	}

	return accounts, nil
}

func (b *AccountBalances) hold(ctx context.Context) (*domain.Account, error) {
	h, err := b.scope.Find(ctx, b.holdAccount)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrMissingHoldAccount
	}

	return h, err
}

// move debits (toHold) or credits each account against the hold account.
func (b *AccountBalances) move(ctx context.Context, totals []accountTotal, accounts []*domain.Account, toHold bool) error {
	hold, err := b.hold(ctx)
	if err != nil {
		return err
	}

	for i, t := range totals {
		account := accounts[i]

		var amount decimal.Decimal
		if toHold {
			amount = t.total.Neg()
			if err := b.setBalance(ctx, account, account.ApplyDebit(t.total), amount); err != nil {
				return err
			}
			if err := b.setBalance(ctx, hold, hold.ApplyCredit(t.total), t.total); err != nil {
				return err
			}
		} else {
			amount = t.total
			if err := b.setBalance(ctx, account, account.ApplyCredit(t.total), amount); err != nil {
				return err
			}
			if err := b.setBalance(ctx, hold, hold.ApplyDebit(t.total), t.total.Neg()); err != nil {
				return err
			}
		}

		b.logger.Debug().
			Str("transfer_id", b.transferID).
			Str("account", account.Name).
			Str("amount", amount.String()).
			Str("balance", account.Balance.String()).
			Msg("balance moved")
	}

	return nil
}

func (b *AccountBalances) setBalance(ctx context.Context, account *domain.Account, balance, amount decimal.Decimal) error {
	entry := &domain.Entry{
		ID:               b.idGen.Generate(),
		AccountName:      account.Name,
		TransferID:       b.transferID,
		Amount:           amount,
		PreviousBalance:  account.Balance,
		ResultingBalance: balance,
		CreatedAt:        b.now,
	}

	account.Balance = balance
	account.UpdatedAt = b.now

	if err := b.scope.Save(ctx, account); err != nil {
		return err
	}

	return b.entryRepo.Create(ctx, b.scope.Transaction(), entry)
}
