package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/usecase"
	"github.com/iho/escrowledger/internal/usecase/mocks"
)

func TestLedgerUseCase_CheckConsistency(t *testing.T) {
	mismatch := domain.BalanceMismatch{Account: "alice", Balance: decimal.NewFromInt(5), EntryBalance: decimal.NewFromInt(4)}

	tests := []struct {
		name       string
		total      decimal.Decimal
		mismatches []domain.BalanceMismatch
		consistent bool
	}{
		{name: "balanced ledger", total: decimal.Zero, consistent: true},
		{name: "entries do not net to zero", total: decimal.NewFromInt(1)},
		{name: "balance disagrees with entries", total: decimal.Zero, mismatches: []domain.BalanceMismatch{mismatch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockLedgerRepository(ctrl)
			repo.EXPECT().SumEntries(gomock.Any()).Return(tt.total, nil)
			repo.EXPECT().FindBalanceMismatches(gomock.Any()).Return(tt.mismatches, nil)

			report, err := usecase.NewLedgerUseCase(repo).CheckConsistency(context.Background())

			require.NotNil(t, report)
			assert.Equal(t, tt.consistent, report.Consistent)
			assert.True(t, tt.total.Equal(report.EntryTotal))
			assert.Equal(t, tt.mismatches, report.Mismatches)
			if tt.consistent {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, usecase.ErrInconsistentLedger)
			}
		})
	}
}

func TestLedgerUseCase_RepositoryErrorSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLedgerRepository(ctrl)
	boom := errors.New("db down")
	repo.EXPECT().SumEntries(gomock.Any()).Return(decimal.Zero, boom)

	report, err := usecase.NewLedgerUseCase(repo).CheckConsistency(context.Background())

	assert.Nil(t, report)
	assert.ErrorIs(t, err, boom)
}

func TestLedgerUseCase_ConsistentAfterTransfers(t *testing.T) {
	f := newFixture(t).allowExpiry()

	_, err := f.uc.SetTransfer(context.Background(), newTransfer("t1", "30", true), alice)
	require.NoError(t, err)
	_, err = f.uc.SetTransfer(context.Background(), newTransfer("t2", "20", true), alice)
	require.NoError(t, err)

	report, err := usecase.NewLedgerUseCase(f.store.LedgerRepository()).CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	bob := f.store.Account("bob")
	bob.Balance = decimal.NewFromInt(1000)
	f.store.PutAccount(bob)

	report, err = usecase.NewLedgerUseCase(f.store.LedgerRepository()).CheckConsistency(context.Background())
	assert.ErrorIs(t, err, usecase.ErrInconsistentLedger)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "bob", report.Mismatches[0].Account)
}
