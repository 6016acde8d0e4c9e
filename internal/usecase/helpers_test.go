package usecase_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/infrastructure/cryptocondition"
	"github.com/iho/escrowledger/internal/usecase"
	"github.com/iho/escrowledger/internal/usecase/mocks"
)

const testBaseURI = "http://ledger.example"

type fixture struct {
	store  *mocks.Store
	expiry *mocks.MockExpiryMonitor
	uc     *usecase.TransferUseCase
	now    time.Time
}

type fixtureOption func(*usecase.TransferDeps, *usecase.TransferConfig)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &fixture{
		store:  mocks.NewStore(),
		expiry: mocks.NewMockExpiryMonitor(ctrl),
		now:    time.Date(2015, 6, 16, 0, 0, 0, 0, time.UTC),
	}

	f.store.PutAccount(&domain.Account{Name: "hold", MinimumAllowedBalance: domain.UnboundedMinimum()})
	f.store.PutAccount(&domain.Account{Name: "alice", Balance: decimal.NewFromInt(100)})
	f.store.PutAccount(&domain.Account{Name: "bob"})

	idGen := &mocks.SequenceIDGenerator{}

	deps := usecase.TransferDeps{
		TxManager:       f.store,
		AccountRepo:     f.store.AccountRepository(),
		TransferRepo:    f.store.TransferRepository(),
		FulfillmentRepo: f.store.FulfillmentRepository(),
		EntryRepo:       f.store.EntryRepository(),
		IDGen:           idGen,
		Verifier:        cryptocondition.NewRegistry(),
		Expiry:          f.expiry,
		Notifier:        usecase.NewOutboxNotifier(f.store.OutboxRepository(), idGen),
		Clock:           func() time.Time { return f.now },
	}
	cfg := usecase.TransferConfig{BaseURI: testBaseURI}

	for _, opt := range opts {
		opt(&deps, &cfg)
	}

	f.uc = usecase.NewTransferUseCase(deps, cfg)

	return f
}

// allowExpiry accepts any interaction with the expiry monitor.
func (f *fixture) allowExpiry() *fixture {
	f.expiry.EXPECT().ValidateNotExpired(gomock.Any()).Return(nil).AnyTimes()
	f.expiry.EXPECT().Watch(gomock.Any()).AnyTimes()
	f.expiry.EXPECT().Unwatch(gomock.Any()).AnyTimes()
	return f
}

func (f *fixture) balance(t *testing.T, name string) string {
	t.Helper()
	a := f.store.Account(name)
	if a == nil {
		t.Fatalf("account %s not found", name)
	}
	return a.Balance.String()
}

func newTransfer(id string, amount string, authorized bool) *domain.Transfer {
	return &domain.Transfer{
		ID: id,
		Debits: []domain.Funds{
			{Account: "alice", Amount: decimal.RequireFromString(amount), Authorized: authorized},
		},
		Credits: []domain.Funds{
			{Account: "bob", Amount: decimal.RequireFromString(amount)},
		},
	}
}

var alice = &domain.Identity{Name: "alice"}
